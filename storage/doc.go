// Package storage provides state storage adapters and utilities for the persist-expire library.
//
// This package contains adapters such as SilentErrorStorage, which wraps any Storage
// implementation to silently handle errors, FunctionsStorage, which allows building
// custom storage implementations using function callbacks, and PrefixStorage, which
// namespaces the keys of a shared storage.
//
// This package also defines common error types for storage operations:
// ErrGet, ErrSet, and ErrRemove.
package storage
