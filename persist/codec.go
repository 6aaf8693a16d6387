package persist

import (
	"fmt"

	"github.com/goccy/go-json"

	persistexpire "github.com/karupanerura/persist-expire"
)

// Codec is an interface for serializing states.
type Codec interface {
	// Encode serializes the state. A nil state is encoded as the empty state.
	Encode(*persistexpire.State) ([]byte, error)

	// Decode deserializes the state.
	Decode([]byte) (*persistexpire.State, error)
}

// JSONCodec is a Codec that serializes states as JSON objects keeping the key order.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

// Encode serializes the state as a JSON object.
func (JSONCodec) Encode(state *persistexpire.State) ([]byte, error) {
	if state == nil {
		state = persistexpire.EmptyState()
	}
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return b, nil
}

// Decode deserializes a JSON object.
// Numbers are decoded as json.Number of the standard library and nested objects as *persistexpire.State.
func (JSONCodec) Decode(b []byte) (*persistexpire.State, error) {
	var state persistexpire.State
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &state, nil
}
