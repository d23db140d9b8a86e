// Package transport owns the device byte stream.
//
// Ownership boundary:
// - port open/close lifecycle
// - bounded-timeout reads
// - newline framing into raw lines
//
// A Reader is driven by exactly one goroutine. Timeouts are not errors;
// they hand control back so the caller can observe a stop request.
package transport
