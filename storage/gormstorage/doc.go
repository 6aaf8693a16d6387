// Package gormstorage provides a persistexpire.Storage implementation backed by a SQL database through GORM.
//
// Each persisted reducer is stored as one row keyed by its storage key.
// Open creates a SQLite database with the pure Go driver, so no cgo toolchain is required.
package gormstorage
