// Package protocol owns the device wire contract.
//
// Ownership boundary:
// - frame text format and field order
// - header echo recognition
// - parse failure classification
package protocol
