package storage

import (
	"context"

	persistexpire "github.com/karupanerura/persist-expire"
)

var _ persistexpire.Storage = (*SilentErrorStorage)(nil)

// SilentErrorStorage is a decorator for a persistexpire.Storage that silently handles
// errors during operations. Instead of propagating the error, it calls the provided OnError function.
type SilentErrorStorage struct {
	// Storage is the underlying storage that this decorator wraps.
	Storage persistexpire.Storage

	// OnError is a function that is called when an error occurs during an operation.
	// The error is passed to the function as an argument.
	OnError func(error)
}

// GetItem retrieves the value associated with the given key from the underlying storage.
// If an error occurs, it is passed to the OnError handler and the method returns nil value and nil error,
// which means the state is rehydrated as missing.
func (s *SilentErrorStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	value, err := s.Storage.GetItem(ctx, key)
	if err != nil {
		if s.OnError != nil {
			s.OnError(err)
		}
		return nil, nil
	}
	return value, nil
}

// SetItem stores the given value in the underlying storage.
// If an error occurs and an OnError handler is set, the error will be passed to the OnError handler.
// The method itself always returns nil.
func (s *SilentErrorStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.Storage.SetItem(ctx, key, value); err != nil && s.OnError != nil {
		s.OnError(err)
	}
	return nil
}

// RemoveItem removes the value from the underlying storage.
// If an error occurs and an OnError handler is set, the error will be passed to the OnError handler.
// The method itself always returns nil.
func (s *SilentErrorStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.Storage.RemoveItem(ctx, key); err != nil && s.OnError != nil {
		s.OnError(err)
	}
	return nil
}

var _ persistexpire.Storage = (*FunctionsStorage)(nil)

// FunctionsStorage is a persistexpire.Storage implementation that uses functions to perform the storage operations.
type FunctionsStorage struct {
	// GetItemFunc retrieves a value by its key.
	// If the key is not found, it should return nil value and nil error.
	GetItemFunc func(context.Context, string) ([]byte, error)

	// SetItemFunc stores a value with the given key.
	// If the key already exists, it should overwrite the existing value.
	SetItemFunc func(context.Context, string, []byte) error

	// RemoveItemFunc removes a value by its key.
	RemoveItemFunc func(context.Context, string) error
}

// GetItem calls the GetItemFunc function.
func (s *FunctionsStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	return s.GetItemFunc(ctx, key)
}

// SetItem calls the SetItemFunc function.
func (s *FunctionsStorage) SetItem(ctx context.Context, key string, value []byte) error {
	return s.SetItemFunc(ctx, key, value)
}

// RemoveItem calls the RemoveItemFunc function.
func (s *FunctionsStorage) RemoveItem(ctx context.Context, key string) error {
	return s.RemoveItemFunc(ctx, key)
}

var _ persistexpire.Storage = (*PrefixStorage)(nil)

// PrefixStorage is a decorator for a persistexpire.Storage that prepends Prefix to every key.
type PrefixStorage struct {
	// Storage is the underlying storage that this decorator wraps.
	Storage persistexpire.Storage

	// Prefix is prepended to the keys.
	Prefix string
}

// GetItem retrieves the value stored with the prefixed key.
func (s *PrefixStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	return s.Storage.GetItem(ctx, s.Prefix+key)
}

// SetItem stores the value with the prefixed key.
func (s *PrefixStorage) SetItem(ctx context.Context, key string, value []byte) error {
	return s.Storage.SetItem(ctx, s.Prefix+key, value)
}

// RemoveItem removes the value stored with the prefixed key.
func (s *PrefixStorage) RemoveItem(ctx context.Context, key string) error {
	return s.Storage.RemoveItem(ctx, s.Prefix+key)
}
