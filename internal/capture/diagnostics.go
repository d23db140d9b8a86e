package capture

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// KindWriteFailure marks a failed log append.
const KindWriteFailure = "write_failure"

// Diagnostic is one structured event about a line the loop could not log.
type Diagnostic struct {
	Time     time.Time
	Severity Severity
	Kind     string
	Line     int
	Raw      string
	Err      error
}

// Sink receives diagnostics. Emit is called from the loop goroutine and
// must not block for long.
type Sink interface {
	Emit(d Diagnostic)
}

// LogSink writes diagnostics through a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Emit(d Diagnostic) {
	ev := s.Logger.Warn()
	if d.Severity == SeverityError {
		ev = s.Logger.Error()
	}
	ev.Time("receipt_time", d.Time).
		Str("kind", d.Kind).
		Int("line", d.Line).
		Str("raw", d.Raw).
		Err(d.Err).
		Msg("capture.Loop.diagnostic")
}

// RecorderSink keeps every diagnostic in memory.
type RecorderSink struct {
	mu     sync.Mutex
	events []Diagnostic
}

func (s *RecorderSink) Emit(d Diagnostic) {
	s.mu.Lock()
	s.events = append(s.events, d)
	s.mu.Unlock()
}

func (s *RecorderSink) Events() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.events))
	copy(out, s.events)
	return out
}

type multiSink []Sink

func (m multiSink) Emit(d Diagnostic) {
	for _, s := range m {
		s.Emit(d)
	}
}
