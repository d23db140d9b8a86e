package protocol

import "errors"

var (
	ErrUndecodable = errors.New("protocol: line is not valid text")
	ErrEmpty       = errors.New("protocol: empty line")
	ErrHeaderEcho  = errors.New("protocol: device header echo")
	ErrFieldCount  = errors.New("protocol: field count mismatch")
	ErrNonNumeric  = errors.New("protocol: non-numeric field")
	ErrOversized   = errors.New("protocol: line exceeds maximum length")
)
