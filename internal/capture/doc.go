// Package capture owns the ingestion loop.
//
// Ownership boundary:
// - transport and log lifetime for one run
// - frame classification and diagnostics
// - cooperative stop handling
//
// Lifecycle order:
// - starting -> running -> stopping -> closed
//
// - closed is terminal; a Loop runs once.
//
// - the transport and the log are released on every exit path, including
// fatal errors and panics.
package capture
