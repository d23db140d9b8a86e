// Package store owns the persisted capture log.
//
// Ownership boundary:
// - output file lifecycle
// - header row (exactly once, before any data row)
// - row append and flush policy
package store
