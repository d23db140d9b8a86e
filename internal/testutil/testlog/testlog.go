package testlog

import (
	"strings"
	"testing"

	"github.com/danmuck/levellog/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("testlog.Start")
}

// Logger writes through t.Log so its lines stay attached to the test that
// produced them.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	return logging.New(logging.Config{
		Level:   zerolog.DebugLevel,
		NoColor: true,
		Out:     tWriter{t},
	}).With().Str("test", t.Name()).Logger()
}

type tWriter struct {
	t *testing.T
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
