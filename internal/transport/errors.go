package transport

import "errors"

var (
	ErrPortOpen        = errors.New("transport: port open failed")
	ErrReadTimeout     = errors.New("transport: read timeout")
	ErrTransportClosed = errors.New("transport: closed")
	ErrTransportRead   = errors.New("transport: read failed")
	ErrLineTooLong     = errors.New("transport: line too long")
	ErrReaderClosed    = errors.New("transport: reader closed")
	ErrUnknownKind     = errors.New("transport: unknown kind")
	ErrNameRequired    = errors.New("transport: port name required")
	ErrInvalidParity   = errors.New("transport: invalid parity")
	ErrInvalidStopBits = errors.New("transport: invalid stop bits")
)
