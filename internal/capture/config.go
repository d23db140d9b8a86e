package capture

import (
	"time"

	"github.com/danmuck/levellog/internal/protocol/frame"
	"github.com/danmuck/levellog/internal/store"
	"github.com/danmuck/levellog/internal/transport"
)

// Config configures one capture run.
type Config struct {
	Transport       transport.Config
	Output          string
	Mode            store.OpenMode
	Parser          frame.Parser
	SyncEvery       int
	Echo            bool
	MetricsTextfile string
	StatusInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Transport:      transport.DefaultConfig(),
		Output:         "leveling_data_log.csv",
		Mode:           store.ModeTruncate,
		Parser:         frame.DefaultParser(),
		StatusInterval: 30 * time.Second,
	}
}
