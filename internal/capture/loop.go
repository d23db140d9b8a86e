package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/levellog/internal/clock"
	"github.com/danmuck/levellog/internal/observability"
	"github.com/danmuck/levellog/internal/protocol/frame"
	"github.com/danmuck/levellog/internal/store"
	"github.com/danmuck/levellog/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrLoopClosed = errors.New("capture: loop already ran")

// Phase is the ingestion loop lifecycle state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
	PhaseClosed   Phase = "closed"
)

// StopReason records why a run ended.
type StopReason string

const (
	ReasonCancelled       StopReason = "cancelled"
	ReasonTransportClosed StopReason = "transport_closed"
	ReasonFatal           StopReason = "fatal"
)

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Reason   StopReason
	Output   string
	Lines    int
	Records  int
	Ignored  int
	Rejected int
	Started  time.Time
	Stopped  time.Time
}

// LogWriter is the persisted log as seen by the loop.
type LogWriter interface {
	WriteHeader() error
	Append(rec frame.Record) error
	Close() error
}

// LogOpener opens the output log.
type LogOpener func(path string, mode store.OpenMode, syncEvery int) (LogWriter, error)

func openStore(path string, mode store.OpenMode, syncEvery int) (LogWriter, error) {
	l, err := store.Open(path, mode)
	if err != nil {
		return nil, err
	}
	l.SyncEvery = syncEvery
	return l, nil
}

type Option func(*Loop)

// WithClock sets the receipt-time source. It is wrapped so readings never
// go backwards within a run.
func WithClock(c clock.Clock) Option {
	return func(l *Loop) { l.clock = c }
}

func WithOpener(o transport.Opener) Option {
	return func(l *Loop) { l.opener = o }
}

func WithLogOpener(o LogOpener) Option {
	return func(l *Loop) { l.openLog = o }
}

// WithSink adds a diagnostics sink alongside the logger.
func WithSink(s Sink) Option {
	return func(l *Loop) { l.extraSinks = append(l.extraSinks, s) }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// Loop drives one capture run from a transport into a log.
type Loop struct {
	cfg        Config
	clock      clock.Clock
	opener     transport.Opener
	openLog    LogOpener
	logger     zerolog.Logger
	extraSinks []Sink

	mu    sync.RWMutex
	phase Phase
	ran   bool
}

// New builds an idle Loop; it does not touch the transport or the log.
func New(cfg Config, opts ...Option) *Loop {
	l := &Loop{
		cfg:     cfg,
		clock:   clock.Real(),
		opener:  transport.DefaultOpener,
		openLog: openStore,
		logger:  log.Logger,
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.clock = clock.Monotonic(l.clock)
	return l
}

func (l *Loop) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

func (l *Loop) setPhase(p Phase) {
	l.mu.Lock()
	l.phase = p
	l.mu.Unlock()
	observability.SetPhase(string(p))
}

// Run executes starting -> running -> stopping -> closed. It returns nil
// when the run ended by cancellation or transport close; otherwise the
// fatal error, joined with any release failure.
func (l *Loop) Run(ctx context.Context) (sum Summary, err error) {
	l.mu.Lock()
	if l.ran {
		l.mu.Unlock()
		return Summary{}, ErrLoopClosed
	}
	l.ran = true
	l.mu.Unlock()

	runID := uuid.NewString()
	logger := l.logger.With().Str("run_id", runID).Logger()
	sink := multiSink(append([]Sink{LogSink{Logger: logger}}, l.extraSinks...))
	sum = Summary{RunID: runID, Output: l.cfg.Output, Started: l.clock.Now()}

	l.setPhase(PhaseStarting)
	defer func() {
		sum.Stopped = l.clock.Now()
		l.setPhase(PhaseClosed)
		l.exportMetrics(logger)
		ev := logger.Info()
		if err != nil {
			ev = logger.Error().Err(err)
		}
		ev.Str("reason", string(sum.Reason)).
			Int("lines", sum.Lines).
			Int("records", sum.Records).
			Int("ignored", sum.Ignored).
			Int("rejected", sum.Rejected).
			Dur("elapsed", sum.Stopped.Sub(sum.Started)).
			Msg("capture.Loop.Run closed")
	}()

	reader, err := transport.Open(ctx, l.opener, l.cfg.Transport)
	if err != nil {
		sum.Reason = ReasonFatal
		return sum, err
	}
	out, err := l.openLog(l.cfg.Output, l.cfg.Mode, l.cfg.SyncEvery)
	if err != nil {
		sum.Reason = ReasonFatal
		return sum, errors.Join(err, reader.Close())
	}
	defer func() {
		l.setPhase(PhaseStopping)
		if rerr := release(out, reader); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	if err := out.WriteHeader(); err != nil {
		sum.Reason = ReasonFatal
		return sum, err
	}

	logger.Info().
		Str("port", reader.Name()).
		Str("output", l.cfg.Output).
		Str("mode", string(l.cfg.Mode)).
		Msg("capture.Loop.Run ready")
	l.setPhase(PhaseRunning)

	sum.Reason, err = l.run(ctx, reader, out, sink, &sum, logger)
	return sum, err
}

// release closes the log before the transport so the last row is on disk
// even if the port close hangs up.
func release(out LogWriter, reader *transport.Reader) error {
	var errs []error
	if err := out.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log: %w", err))
	}
	if err := reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	return errors.Join(errs...)
}

func (l *Loop) run(
	ctx context.Context,
	reader *transport.Reader,
	out LogWriter,
	sink Sink,
	sum *Summary,
	logger zerolog.Logger,
) (StopReason, error) {
	lastStatus := l.clock.Now()
	for {
		if ctx.Err() != nil {
			return ReasonCancelled, nil
		}
		if l.cfg.StatusInterval > 0 {
			if now := l.clock.Now(); now.Sub(lastStatus) >= l.cfg.StatusInterval {
				lastStatus = now
				l.status(sum, logger)
			}
		}

		raw, err := reader.NextLine()
		if ctx.Err() != nil {
			return ReasonCancelled, nil
		}
		if err != nil {
			switch {
			case errors.Is(err, transport.ErrReadTimeout):
				observability.RecordTimeout()
				continue
			case errors.Is(err, transport.ErrLineTooLong):
				sum.Lines++
				sum.Rejected++
				observability.RecordLine(string(frame.KindOversized))
				sink.Emit(Diagnostic{
					Time:     l.clock.Now(),
					Severity: SeverityWarn,
					Kind:     string(frame.KindOversized),
					Line:     sum.Lines,
					Err:      err,
				})
				continue
			case errors.Is(err, transport.ErrTransportClosed):
				return ReasonTransportClosed, nil
			default:
				return ReasonFatal, err
			}
		}

		sum.Lines++
		ts := l.clock.Now()
		rec, err := l.cfg.Parser.Parse(raw, ts)
		if err != nil {
			pe, ok := frame.AsParseError(err)
			if !ok {
				return ReasonFatal, err
			}
			observability.RecordLine(string(pe.Kind))
			if pe.Ignorable() {
				sum.Ignored++
				continue
			}
			sum.Rejected++
			sink.Emit(Diagnostic{
				Time:     ts,
				Severity: SeverityWarn,
				Kind:     string(pe.Kind),
				Line:     sum.Lines,
				Raw:      pe.Raw,
				Err:      err,
			})
			continue
		}

		if err := out.Append(rec); err != nil {
			observability.RecordWrite(false)
			sink.Emit(Diagnostic{
				Time:     ts,
				Severity: SeverityError,
				Kind:     KindWriteFailure,
				Line:     sum.Lines,
				Raw:      raw.Text(),
				Err:      err,
			})
			return ReasonFatal, err
		}
		observability.RecordWrite(true)
		observability.RecordLine("record")
		sum.Records++
		if l.cfg.Echo {
			logger.Info().Strs("row", rec.Row()).Msg("capture.Loop.record")
		}
	}
}

func (l *Loop) status(sum *Summary, logger zerolog.Logger) {
	logger.Info().
		Str("phase", string(l.Phase())).
		Int("lines", sum.Lines).
		Int("records", sum.Records).
		Int("rejected", sum.Rejected).
		Msg("capture.Loop.status")
	l.exportMetrics(logger)
}

func (l *Loop) exportMetrics(logger zerolog.Logger) {
	if l.cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(l.cfg.MetricsTextfile); err != nil {
		logger.Warn().Err(err).Str("path", l.cfg.MetricsTextfile).Msg("capture.Loop.exportMetrics failed")
	}
}
