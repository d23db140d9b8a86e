package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tarm/serial"
)

// Port is an open byte source. Read must return within the configured
// read timeout; a timeout with no data is reported as ErrReadTimeout.
type Port interface {
	io.ReadCloser
}

// Opener opens the Port described by a Config.
type Opener interface {
	Open(cfg Config) (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(cfg Config) (Port, error)

func (f OpenerFunc) Open(cfg Config) (Port, error) { return f(cfg) }

// DefaultOpener dispatches on cfg.Kind.
var DefaultOpener Opener = OpenerFunc(func(cfg Config) (Port, error) {
	switch cfg.Kind {
	case KindSerial:
		return openSerial(cfg)
	case KindReplay:
		return openReplay(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
})

type serialPort struct {
	port *serial.Port
}

func openSerial(cfg Config) (Port, error) {
	parity, err := serialParity(cfg.Parity)
	if err != nil {
		return nil, err
	}
	stop, err := serialStopBits(cfg.StopBits)
	if err != nil {
		return nil, err
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        cfg.Size,
		Parity:      parity,
		StopBits:    stop,
	})
	if err != nil {
		return nil, err
	}
	return &serialPort{port: p}, nil
}

// Read maps the driver's timeout signal to ErrReadTimeout. On posix the
// driver reports an expired VTIME as (0, io.EOF); on windows as (0, nil).
func (s *serialPort) Read(b []byte) (int, error) {
	n, err := s.port.Read(b)
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (s *serialPort) Close() error {
	return s.port.Close()
}

func serialParity(raw string) (serial.Parity, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "N", "NONE":
		return serial.ParityNone, nil
	case "O", "ODD":
		return serial.ParityOdd, nil
	case "E", "EVEN":
		return serial.ParityEven, nil
	case "M", "MARK":
		return serial.ParityMark, nil
	case "S", "SPACE":
		return serial.ParitySpace, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidParity, raw)
	}
}

func serialStopBits(n int) (serial.StopBits, error) {
	switch n {
	case 0, 1:
		return serial.Stop1, nil
	case 15:
		return serial.Stop1Half, nil
	case 2:
		return serial.Stop2, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidStopBits, n)
	}
}
