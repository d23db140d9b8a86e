package store

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/levellog/internal/protocol"
	"github.com/danmuck/levellog/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var (
	ErrLogOpen        = errors.New("store: log open failed")
	ErrWrite          = errors.New("store: write failed")
	ErrHeaderWritten  = errors.New("store: header already written")
	ErrHeaderMissing  = errors.New("store: header not written")
	ErrHeaderMismatch = errors.New("store: existing header does not match")
	ErrClosed         = errors.New("store: log closed")
	ErrInvalidMode    = errors.New("store: invalid open mode")
)

// OpenMode decides what happens to an existing file at the output path.
type OpenMode string

const (
	// ModeTruncate overwrites any existing file.
	ModeTruncate OpenMode = "truncate"
	// ModeAppend keeps existing rows; the header is written only into an
	// empty file and must match otherwise.
	ModeAppend OpenMode = "append"
	// ModeExclusive refuses to open an existing file.
	ModeExclusive OpenMode = "exclusive"
)

// ParseOpenMode maps a config value onto an OpenMode; empty means truncate.
func ParseOpenMode(raw string) (OpenMode, error) {
	switch OpenMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeTruncate:
		return ModeTruncate, nil
	case ModeAppend:
		return ModeAppend, nil
	case ModeExclusive:
		return ModeExclusive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// Log appends records to a CSV file. It is owned by one goroutine.
type Log struct {
	path string
	file *os.File
	w    *csv.Writer

	// SyncEvery fsyncs after every n appended rows; zero leaves syncing to
	// Close.
	SyncEvery int

	headerDone    bool
	headerPresent bool
	rows          int
	sinceSync     int

	closed   bool
	closeErr error
}

// Open acquires the output file. Failures wrap ErrLogOpen.
func Open(path string, mode OpenMode) (*Log, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrLogOpen)
	}
	mode, err := ParseOpenMode(string(mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogOpen, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLogOpen, path, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case ModeTruncate:
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			log.Warn().
				Str("path", path).
				Int64("bytes", info.Size()).
				Msg("store.Open overwriting existing log")
		}
		flags |= os.O_TRUNC
	case ModeAppend:
		flags |= os.O_APPEND
	case ModeExclusive:
		flags |= os.O_EXCL
	}

	headerPresent := false
	if mode == ModeAppend {
		headerPresent, err = checkExistingHeader(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLogOpen, path, err)
		}
		if headerPresent {
			if err := repairTail(path); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrLogOpen, path, err)
			}
		}
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLogOpen, path, err)
	}
	log.Debug().Str("path", path).Str("mode", string(mode)).Msg("store.Open")
	return &Log{
		path:          path,
		file:          f,
		w:             csv.NewWriter(f),
		headerPresent: headerPresent,
	}, nil
}

// checkExistingHeader reports whether path already holds a header row and
// verifies it matches the fixed column layout.
func checkExistingHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return false, sc.Err()
	}
	first := strings.TrimSpace(sc.Text())
	if first == "" {
		return false, nil
	}
	if first != strings.Join(protocol.LogColumns, ",") {
		return false, fmt.Errorf("%w: %q", ErrHeaderMismatch, first)
	}
	return true, nil
}

const tailChunk = 4096

// repairTail makes an existing log end on a row boundary before appending.
// A partial last row left by a crash is cut back to the previous newline;
// a lone header missing its newline gets one.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}

	cut := int64(-1)
	buf := make([]byte, tailChunk)
	for end := size; end > 0 && cut < 0; {
		start := max(end-tailChunk, 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil {
			return err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			cut = start + int64(i) + 1
		}
		end = start
	}

	if cut < 0 {
		log.Warn().Str("path", path).Msg("store.Open header missing trailing newline")
		if _, err := f.WriteAt([]byte{'\n'}, size); err != nil {
			return err
		}
		return f.Sync()
	}
	log.Warn().
		Str("path", path).
		Int64("dropped_bytes", size-cut).
		Msg("store.Open truncating partial last row")
	if err := f.Truncate(cut); err != nil {
		return err
	}
	return f.Sync()
}

func (l *Log) Path() string {
	return l.path
}

// Rows returns the number of data rows appended by this Log.
func (l *Log) Rows() int {
	return l.rows
}

// WriteHeader writes the column header. It must be called exactly once
// before Append. In append mode an existing matching header satisfies it.
func (l *Log) WriteHeader() error {
	if l.closed {
		return ErrClosed
	}
	if l.headerDone {
		return ErrHeaderWritten
	}
	if !l.headerPresent {
		if err := l.writeRow(protocol.LogColumns); err != nil {
			return err
		}
	}
	l.headerDone = true
	return nil
}

// Append writes one row and flushes it to the OS, so a crash loses at
// most the row in flight.
func (l *Log) Append(rec frame.Record) error {
	if l.closed {
		return ErrClosed
	}
	if !l.headerDone {
		return ErrHeaderMissing
	}
	if err := l.writeRow(rec.Row()); err != nil {
		return err
	}
	l.rows++
	if l.SyncEvery > 0 {
		l.sinceSync++
		if l.sinceSync >= l.SyncEvery {
			l.sinceSync = 0
			if err := l.file.Sync(); err != nil {
				return fmt.Errorf("%w: sync: %w", ErrWrite, err)
			}
		}
	}
	return nil
}

func (l *Log) writeRow(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, l.path, err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, l.path, err)
	}
	return nil
}

// Close flushes, syncs and releases the file. Repeated calls return the
// first result.
func (l *Log) Close() error {
	if l.closed {
		return l.closeErr
	}
	l.closed = true

	var errs []error
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := l.file.Sync(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if len(errs) > 0 {
		l.closeErr = fmt.Errorf("%w: %s: %w", ErrWrite, l.path, errors.Join(errs...))
	}
	log.Debug().Str("path", l.path).Int("rows", l.rows).Err(l.closeErr).Msg("store.Log.Close")
	return l.closeErr
}
