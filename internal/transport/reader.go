package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/levellog/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

const readChunk = 512

// Reader frames a Port into newline-terminated raw lines. Buffered data is
// bounded by MaxLineBytes plus one read chunk regardless of run length.
type Reader struct {
	port    Port
	name    string
	maxLine int

	buf     []byte
	pending []byte

	discarding bool
	eof        bool

	closed   bool
	closeErr error
}

// Open acquires the transport described by cfg, retrying per
// cfg.OpenAttempts. Every failure wraps ErrPortOpen.
func Open(ctx context.Context, opener Opener, cfg Config) (*Reader, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPortOpen, err)
	}
	if opener == nil {
		opener = DefaultOpener
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.OpenAttempts; attempt++ {
		port, err := opener.Open(cfg)
		if err == nil {
			log.Info().
				Str("kind", string(cfg.Kind)).
				Str("port", cfg.Name).
				Int("baud", cfg.Baud).
				Dur("read_timeout", cfg.ReadTimeout).
				Int("attempt", attempt).
				Msg("transport.Open ready")
			return NewReader(port, cfg), nil
		}
		lastErr = err
		if attempt == cfg.OpenAttempts {
			break
		}
		delay := cfg.Backoff.Delay(attempt, nil)
		log.Warn().
			Err(err).
			Str("port", cfg.Name).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("transport.Open retry")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %w", ErrPortOpen, cfg.Name, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrPortOpen, cfg.Name, lastErr)
}

// NewReader wraps an already open port.
func NewReader(port Port, cfg Config) *Reader {
	cfg = cfg.WithDefaults()
	return &Reader{
		port:    port,
		name:    cfg.Name,
		maxLine: cfg.MaxLineBytes,
		buf:     make([]byte, readChunk),
		pending: make([]byte, 0, readChunk),
	}
}

func (r *Reader) Name() string {
	return r.name
}

// NextLine blocks for at most one read timeout. It returns ErrReadTimeout
// when no complete line arrived, ErrLineTooLong once per oversized line,
// and ErrTransportClosed after the source ends and buffered data has been
// delivered.
func (r *Reader) NextLine() (frame.RawLine, error) {
	if r.closed {
		return frame.RawLine{}, ErrReaderClosed
	}
	for {
		line, ok, err := r.takeLine()
		if ok || err != nil {
			return line, err
		}
		if r.eof {
			if len(r.pending) > 0 && !r.discarding {
				line := frame.NewRawLine(r.pending)
				r.pending = r.pending[:0]
				return line, nil
			}
			r.pending = r.pending[:0]
			return frame.RawLine{}, fmt.Errorf("%w: %w", ErrTransportClosed, io.EOF)
		}

		n, err := r.port.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.buf[:n]...)
		}
		switch {
		case err == nil && n > 0:
		case err == nil, errors.Is(err, ErrReadTimeout):
			if line, ok, lerr := r.takeLine(); ok || lerr != nil {
				return line, lerr
			}
			return frame.RawLine{}, ErrReadTimeout
		case errors.Is(err, io.EOF):
			r.eof = true
		default:
			return frame.RawLine{}, fmt.Errorf("%w: %w", ErrTransportRead, err)
		}
	}
}

func (r *Reader) takeLine() (frame.RawLine, bool, error) {
	for {
		idx := bytes.IndexByte(r.pending, '\n')
		if idx < 0 {
			if len(r.pending) > r.maxLine {
				r.pending = r.pending[:0]
				if !r.discarding {
					r.discarding = true
					return frame.RawLine{}, false, ErrLineTooLong
				}
			}
			return frame.RawLine{}, false, nil
		}

		if r.discarding {
			r.discarding = false
			r.shift(idx + 1)
			continue
		}
		if idx > r.maxLine {
			r.shift(idx + 1)
			return frame.RawLine{}, false, ErrLineTooLong
		}
		line := frame.NewRawLine(r.pending[:idx])
		r.shift(idx + 1)
		return line, true, nil
	}
}

func (r *Reader) shift(n int) {
	r.pending = append(r.pending[:0], r.pending[n:]...)
}

// Close releases the port. Repeated calls return the first result.
func (r *Reader) Close() error {
	if r.closed {
		return r.closeErr
	}
	r.closed = true
	if r.port != nil {
		r.closeErr = r.port.Close()
	}
	r.pending = nil
	log.Debug().Str("port", r.name).Err(r.closeErr).Msg("transport.Reader.Close")
	return r.closeErr
}
