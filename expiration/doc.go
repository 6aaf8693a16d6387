// Package expiration provides policies for deciding whether a persisted state is stale.
//
// This package defines the Policy interface and several implementations that compare
// the time a state was persisted at with the current time. These policies can be used
// with the persist-expire package to customize the rehydration behavior.
package expiration
