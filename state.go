package persistexpire

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"github.com/goccy/go-json"
	"github.com/goccy/go-reflect"
)

// Entry is a key-value pair of a State.
type Entry struct {
	// Key is the key of the entry.
	Key string

	// Value is the value associated with the key.
	Value any
}

// State is an immutable string-keyed map that remembers insertion order.
// It represents one reducer's slice of application state.
//
// Every modifying method returns a new State and leaves the receiver untouched,
// so a State can be shared between goroutines without synchronization.
// A nil *State behaves as an empty State for all read operations.
type State struct {
	keys   []string
	values map[string]any
}

var emptyState = &State{values: map[string]any{}}

// EmptyState returns the empty State.
func EmptyState() *State {
	return emptyState
}

// NewState creates a new State from the given entries.
// When a key appears more than once, the last value wins and the first position is kept.
func NewState(entries ...Entry) *State {
	s := &State{
		keys:   make([]string, 0, len(entries)),
		values: make(map[string]any, len(entries)),
	}
	for _, e := range entries {
		if _, ok := s.values[e.Key]; !ok {
			s.keys = append(s.keys, e.Key)
		}
		s.values[e.Key] = e.Value
	}
	return s
}

// Len returns the number of entries.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Get returns the value associated with the key.
func (s *State) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether the key exists and holds a non-nil value.
func (s *State) Has(key string) bool {
	v, ok := s.Get(key)
	return ok && v != nil
}

// Keys returns the keys in insertion order.
func (s *State) Keys() []string {
	if s == nil {
		return []string{}
	}
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// All returns an iterator over the entries in insertion order.
func (s *State) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if s == nil {
			return
		}
		for _, k := range s.keys {
			if !yield(k, s.values[k]) {
				return
			}
		}
	}
}

// Set returns a new State with the key set to the value.
// A new key is appended last; an existing key keeps its position.
func (s *State) Set(key string, value any) *State {
	n := s.clone(1)
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = value
	return n
}

// Delete returns a new State without the key.
// It returns the receiver itself when the key does not exist.
func (s *State) Delete(key string) *State {
	if _, ok := s.Get(key); !ok {
		return s
	}

	n := &State{
		keys:   make([]string, 0, len(s.keys)-1),
		values: make(map[string]any, len(s.values)-1),
	}
	for _, k := range s.keys {
		if k == key {
			continue
		}
		n.keys = append(n.keys, k)
		n.values[k] = s.values[k]
	}
	return n
}

// Equal reports whether both states hold deeply equal values under the same keys in the same order.
func (s *State) Equal(other *State) bool {
	if s == other {
		return true
	}
	if s.Len() != other.Len() {
		return false
	}
	for i, k := range s.Keys() {
		if other.keys[i] != k {
			return false
		}
		if !valueEqual(s.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// ToMap returns a shallow copy of the entries as a plain map.
func (s *State) ToMap() map[string]any {
	m := make(map[string]any, s.Len())
	for k, v := range s.All() {
		m[k] = v
	}
	return m
}

// String implements fmt.Stringer.
func (s *State) String() string {
	var b bytes.Buffer
	b.WriteString("State{")
	for i, k := range s.Keys() {
		if i != 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, s.values[k])
	}
	b.WriteString("}")
	return b.String()
}

func (s *State) clone(extra int) *State {
	n := &State{
		keys:   make([]string, s.Len(), s.Len()+extra),
		values: make(map[string]any, s.Len()+extra),
	}
	if s == nil {
		return n
	}
	copy(n.keys, s.keys)
	for k, v := range s.values {
		n.values[k] = v
	}
	return n
}

func valueEqual(a, b any) bool {
	if sa, ok := a.(*State); ok {
		sb, ok := b.(*State)
		return ok && sa.Equal(sb)
	}
	return reflect.DeepEqual(a, b)
}

// ErrNotObject is returned by UnmarshalJSON when the input is not a JSON object.
var ErrNotObject = errors.New("state must be a JSON object")

// MarshalJSON encodes the State as a JSON object, keeping key order.
func (s *State) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range s.Keys() {
		if i != 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the State, keeping key order.
// Nested objects are decoded as *State and numbers as json.Number.
func (s *State) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotObject
	}
	decoded, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

func decodeObject(dec *json.Decoder) (*State, error) {
	s := &State{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if _, ok := s.values[key]; !ok {
			s.keys = append(s.keys, key)
		}
		s.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}
