package persistexpire

import (
	"context"
	"slices"
)

// Transform is an interface for shaping a reducer's state on its way to and from the storage.
// Implementations must be thread-safe and must never modify the given state in place.
type Transform interface {
	// In transforms the state on its way to being serialized and persisted.
	In(state *State, key string) *State

	// Out transforms the state being rehydrated, right after it is deserialized.
	Out(state *State, key string) *State

	// Whitelist returns the reducer keys this transform is applied to.
	// An empty whitelist means the transform is applied to every key.
	Whitelist() []string
}

// AppliesTo reports whether the transform should be called for the given reducer key.
func AppliesTo(t Transform, key string) bool {
	whitelist := t.Whitelist()
	return len(whitelist) == 0 || slices.Contains(whitelist, key)
}

// TransformFuncs is a Transform implementation that uses functions to transform the state.
// A nil function leaves the state unchanged.
type TransformFuncs struct {
	// InFunc transforms the state before it is persisted.
	InFunc func(*State, string) *State

	// OutFunc transforms the state after it is rehydrated.
	OutFunc func(*State, string) *State

	// Keys is the whitelist of reducer keys.
	Keys []string
}

var _ Transform = (*TransformFuncs)(nil)

// In calls the InFunc function.
func (t *TransformFuncs) In(state *State, key string) *State {
	if t.InFunc == nil {
		return state
	}
	return t.InFunc(state, key)
}

// Out calls the OutFunc function.
func (t *TransformFuncs) Out(state *State, key string) *State {
	if t.OutFunc == nil {
		return state
	}
	return t.OutFunc(state, key)
}

// Whitelist returns the Keys.
func (t *TransformFuncs) Whitelist() []string {
	return t.Keys
}

// Storage is an interface for a key-value storage backend holding serialized states.
// Implementations must be thread-safe.
type Storage interface {
	// GetItem retrieves the serialized state stored with the key.
	// If the key is not found, it should return nil bytes and nil error.
	// It must not return a slice that is modified later by the storage.
	GetItem(context.Context, string) ([]byte, error)

	// SetItem stores the serialized state with the key.
	// If the key already exists, it should overwrite the existing value.
	// It must copy the input bytes before storing them.
	SetItem(context.Context, string, []byte) error

	// RemoveItem removes the value stored with the key.
	// Removing a missing key is not an error.
	RemoveItem(context.Context, string) error
}
