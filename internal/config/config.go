package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/levellog/internal/analysis"
	"github.com/danmuck/levellog/internal/capture"
	"github.com/danmuck/levellog/internal/runavg"
	"github.com/danmuck/levellog/internal/store"
	"github.com/danmuck/levellog/internal/transport"
)

var ErrInvalid = errors.New("config: invalid")

// StatsConfig drives `levellog stats`.
type StatsConfig struct {
	ThresholdMM float64
	Bins        int
	PlotDir     string
}

// AverageConfig drives `levellog average`.
type AverageConfig struct {
	runavg.Config
	Chart string
}

// Config is the whole levellog configuration file.
type Config struct {
	Capture capture.Config
	Stats   StatsConfig
	Average AverageConfig
}

func Default() Config {
	return Config{
		Capture: capture.DefaultConfig(),
		Stats: StatsConfig{
			ThresholdMM: analysis.DefaultThresholdMM,
			Bins:        analysis.DefaultBins,
		},
		Average: AverageConfig{
			Config: runavg.DefaultConfig(),
			Chart:  "average.png",
		},
	}
}

type fileConfig struct {
	Transport        string `toml:"transport"`
	Port             string `toml:"port"`
	Baud             int    `toml:"baud"`
	Parity           string `toml:"parity"`
	StopBits         int    `toml:"stop_bits"`
	ReadTimeout      string `toml:"read_timeout"`
	ReadTimeoutMS    int64  `toml:"read_timeout_ms"`
	MaxLineBytes     int    `toml:"max_line_bytes"`
	OpenAttempts     int    `toml:"open_attempts"`
	Output           string `toml:"output"`
	OutputMode       string `toml:"output_mode"`
	SyncEvery        int    `toml:"sync_every"`
	StrictNumeric    bool   `toml:"strict_numeric"`
	HeaderToken      string `toml:"header_token"`
	Echo             bool   `toml:"echo"`
	MetricsTextfile  string `toml:"metrics_textfile"`
	StatusInterval   string `toml:"status_interval"`
	StatusIntervalMS int64  `toml:"status_interval_ms"`

	Stats   fileStats   `toml:"stats"`
	Average fileAverage `toml:"average"`
}

type fileStats struct {
	ThresholdMM float64 `toml:"threshold_mm"`
	Bins        int     `toml:"bins"`
	PlotDir     string  `toml:"plot_dir"`
}

type fileAverage struct {
	DataDir       string         `toml:"data_dir"`
	Pattern       string         `toml:"pattern"`
	CutoffMinutes float64        `toml:"cutoff_minutes"`
	Points        int            `toml:"points"`
	Chart         string         `toml:"chart"`
	Baselines     []fileBaseline `toml:"baselines"`
}

type fileBaseline struct {
	Name string `toml:"name"`
	File string `toml:"file"`
	Clip bool   `toml:"clip"`
}

// Load overlays the keys defined in path onto Default and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}

	c := &cfg.Capture
	t := &c.Transport
	if meta.IsDefined("transport") {
		t.Kind = transport.Kind(strings.ToLower(strings.TrimSpace(raw.Transport)))
	}
	if meta.IsDefined("port") {
		t.Name = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		t.Baud = raw.Baud
	}
	if meta.IsDefined("parity") {
		t.Parity = strings.TrimSpace(raw.Parity)
	}
	if meta.IsDefined("stop_bits") {
		t.StopBits = raw.StopBits
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		t.ReadTimeout = d
	}
	if meta.IsDefined("read_timeout_ms") {
		t.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("max_line_bytes") {
		t.MaxLineBytes = raw.MaxLineBytes
	}
	if meta.IsDefined("open_attempts") {
		t.OpenAttempts = raw.OpenAttempts
	}

	if meta.IsDefined("output") {
		c.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("output_mode") {
		mode, err := store.ParseOpenMode(raw.OutputMode)
		if err != nil {
			return Config{}, err
		}
		c.Mode = mode
	}
	if meta.IsDefined("sync_every") {
		c.SyncEvery = raw.SyncEvery
	}
	if meta.IsDefined("strict_numeric") {
		c.Parser.Strict = raw.StrictNumeric
	}
	if meta.IsDefined("header_token") {
		c.Parser.HeaderToken = raw.HeaderToken
	}
	if meta.IsDefined("echo") {
		c.Echo = raw.Echo
	}
	if meta.IsDefined("metrics_textfile") {
		c.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}
	if meta.IsDefined("status_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StatusInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse status_interval: %w", err)
		}
		c.StatusInterval = d
	}
	if meta.IsDefined("status_interval_ms") {
		c.StatusInterval = time.Duration(raw.StatusIntervalMS) * time.Millisecond
	}

	if meta.IsDefined("stats", "threshold_mm") {
		cfg.Stats.ThresholdMM = raw.Stats.ThresholdMM
	}
	if meta.IsDefined("stats", "bins") {
		cfg.Stats.Bins = raw.Stats.Bins
	}
	if meta.IsDefined("stats", "plot_dir") {
		cfg.Stats.PlotDir = strings.TrimSpace(raw.Stats.PlotDir)
	}

	a := &cfg.Average
	if meta.IsDefined("average", "data_dir") {
		a.DataDir = strings.TrimSpace(raw.Average.DataDir)
	}
	if meta.IsDefined("average", "pattern") {
		a.Pattern = strings.TrimSpace(raw.Average.Pattern)
	}
	if meta.IsDefined("average", "cutoff_minutes") {
		a.Cutoff = raw.Average.CutoffMinutes
	}
	if meta.IsDefined("average", "points") {
		a.Points = raw.Average.Points
	}
	if meta.IsDefined("average", "chart") {
		a.Chart = strings.TrimSpace(raw.Average.Chart)
	}
	if meta.IsDefined("average", "baselines") {
		a.Baselines = make([]runavg.Baseline, 0, len(raw.Average.Baselines))
		for _, b := range raw.Average.Baselines {
			a.Baselines = append(a.Baselines, runavg.Baseline{
				Name: strings.TrimSpace(b.Name),
				File: strings.TrimSpace(b.File),
				Clip: b.Clip,
			})
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	c := cfg.Capture
	if err := c.Transport.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("%w: output is required", ErrInvalid)
	}
	if c.SyncEvery < 0 {
		return fmt.Errorf("%w: sync_every must be >= 0", ErrInvalid)
	}
	if c.StatusInterval < 0 {
		return fmt.Errorf("%w: status_interval must be >= 0", ErrInvalid)
	}
	if cfg.Stats.ThresholdMM <= 0 {
		return fmt.Errorf("%w: stats.threshold_mm must be > 0", ErrInvalid)
	}
	if cfg.Stats.Bins <= 0 {
		return fmt.Errorf("%w: stats.bins must be > 0", ErrInvalid)
	}
	a := cfg.Average
	if a.Cutoff <= 0 || a.Points < 2 {
		return fmt.Errorf("%w: average needs cutoff_minutes > 0 and points >= 2", ErrInvalid)
	}
	for i, b := range a.Baselines {
		if b.Name == "" || b.File == "" {
			return fmt.Errorf("%w: average.baselines[%d] needs name and file", ErrInvalid, i)
		}
	}
	return nil
}
