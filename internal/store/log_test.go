package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/levellog/internal/protocol"
	"github.com/danmuck/levellog/internal/protocol/frame"
	"github.com/danmuck/levellog/internal/testutil/testlog"
)

var header = strings.Join(protocol.LogColumns, ",")

func record(deviceMS string) frame.Record {
	return frame.Record{
		ReceiptTime:     time.Date(2025, 4, 9, 14, 3, 7, 500000000, time.Local),
		DeviceTimeMS:    deviceMS,
		LevelX:          "0.01",
		LevelY:          "0.02",
		InputVoltageX:   "5.001",
		InputVoltageY:   "4.998",
		InputVoltageSum: "10.002",
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestHeaderThenRows(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "nested", "run.csv")
	l, err := Open(path, ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	for _, ms := range []string{"1000", "1100", "1200"} {
		if err := l.Append(record(ms)); err != nil {
			t.Fatalf("append %s: %v", ms, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 4 {
		t.Fatalf("unexpected line count: %d %q", len(lines), lines)
	}
	if lines[0] != header {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	want := "2025-04-09T14:03:07.500000,1100,0.01,0.02,5.001,4.998,10.002"
	if lines[2] != want {
		t.Fatalf("unexpected row: got=%q want=%q", lines[2], want)
	}
	if l.Rows() != 3 {
		t.Fatalf("unexpected row count: %d", l.Rows())
	}
}

func TestRowsAreVisibleBeforeClose(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	l, err := Open(path, ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := l.Append(record("1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if lines := readLines(t, path); len(lines) != 2 {
		t.Fatalf("row not flushed before close: %q", lines)
	}
}

func TestHeaderOrdering(t *testing.T) {
	testlog.Start(t)
	l, err := Open(filepath.Join(t.TempDir(), "run.csv"), ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()
	if err := l.Append(record("1")); !errors.Is(err, ErrHeaderMissing) {
		t.Fatalf("expected ErrHeaderMissing, got %v", err)
	}
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := l.WriteHeader(); !errors.Is(err, ErrHeaderWritten) {
		t.Fatalf("expected ErrHeaderWritten, got %v", err)
	}
}

func TestTruncateOverwritesExisting(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	if err := os.WriteFile(path, []byte("old data\nmore\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	l, err := Open(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	l.Close()
	if lines := readLines(t, path); len(lines) != 1 || lines[0] != header {
		t.Fatalf("expected only header after truncate: %q", lines)
	}
}

func TestAppendModeKeepsRowsAndSingleHeader(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	for i, ms := range []string{"1", "2"} {
		l, err := Open(path, ModeAppend)
		if err != nil {
			t.Fatalf("open run %d: %v", i, err)
		}
		if err := l.WriteHeader(); err != nil {
			t.Fatalf("header run %d: %v", i, err)
		}
		if err := l.Append(record(ms)); err != nil {
			t.Fatalf("append run %d: %v", i, err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close run %d: %v", i, err)
		}
	}
	lines := readLines(t, path)
	if len(lines) != 3 || lines[0] != header {
		t.Fatalf("unexpected appended log: %q", lines)
	}
	if !strings.Contains(lines[1], ",1,") || !strings.Contains(lines[2], ",2,") {
		t.Fatalf("rows out of order: %q", lines)
	}
}

func TestAppendModeCutsPartialLastRow(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	full := "2025-04-09T14:00:00.000000,1,0,0,5,5,10"
	seed := header + "\n" + full + "\n" + "2025-04-09T14:00:01.000000,2,0,0"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	l, err := Open(path, ModeAppend)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := l.Append(record("3")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 || lines[0] != header || lines[1] != full {
		t.Fatalf("unexpected repaired log: %q", lines)
	}
	if got := strings.Count(lines[2], ","); got != len(protocol.LogColumns)-1 {
		t.Fatalf("appended row merged with partial row: %q", lines[2])
	}
	if !strings.Contains(lines[2], ",3,") {
		t.Fatalf("appended row missing: %q", lines[2])
	}
}

func TestAppendModeHeaderWithoutNewline(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	l, err := Open(path, ModeAppend)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := l.Append(record("1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	l.Close()
	lines := readLines(t, path)
	if len(lines) != 2 || lines[0] != header {
		t.Fatalf("unexpected log: %q", lines)
	}
}

func TestAppendModeRejectsForeignHeader(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	if err := os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	_, err := Open(path, ModeAppend)
	if !errors.Is(err, ErrLogOpen) || !errors.Is(err, ErrHeaderMismatch) {
		t.Fatalf("expected header mismatch, got %v", err)
	}
}

func TestExclusiveRefusesExisting(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "run.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := Open(path, ModeExclusive); !errors.Is(err, ErrLogOpen) || !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected ErrLogOpen wrapping ErrExist, got %v", err)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	if _, err := Open("", ModeTruncate); !errors.Is(err, ErrLogOpen) {
		t.Fatalf("expected ErrLogOpen for empty path, got %v", err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "x.csv"), "rotate"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestAppendWriteFailure(t *testing.T) {
	testlog.Start(t)
	l, err := Open(filepath.Join(t.TempDir(), "run.csv"), ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	l.file.Close()
	if err := l.Append(record("1")); !errors.Is(err, ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	_ = l.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	l, err := Open(filepath.Join(t.TempDir(), "run.csv"), ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := l.WriteHeader(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSyncEvery(t *testing.T) {
	testlog.Start(t)
	l, err := Open(filepath.Join(t.TempDir(), "run.csv"), ModeTruncate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()
	l.SyncEvery = 2
	if err := l.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := l.Append(record("1")); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if l.sinceSync != 1 {
		t.Fatalf("unexpected pending sync count: %d", l.sinceSync)
	}
}

func TestParseOpenMode(t *testing.T) {
	testlog.Start(t)
	for raw, want := range map[string]OpenMode{"": ModeTruncate, "APPEND": ModeAppend, " exclusive ": ModeExclusive} {
		got, err := ParseOpenMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseOpenMode(%q) got=(%q,%v) want=%q", raw, got, err, want)
		}
	}
}
