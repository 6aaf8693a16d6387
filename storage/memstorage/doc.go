// Package memstorage provides an in-memory implementation of the persistexpire.Storage interface.
//
// The in-memory storage can be distributed across multiple buckets to reduce lock contention
// when many reducers are persisted concurrently. It supports custom key hashing and bucket sizing.
//
// The storage copies the stored bytes, so callers may reuse their buffers.
package memstorage
