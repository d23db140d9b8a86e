package runavg

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// Baseline is a named reference run drawn next to the average.
type Baseline struct {
	Name string
	File string
	// Clip applies the run cutoff to the baseline.
	Clip bool
}

type Config struct {
	DataDir   string
	Pattern   string
	Cutoff    float64
	Points    int
	Baselines []Baseline
}

func DefaultConfig() Config {
	return Config{
		DataDir: "EllipsometerLevelData",
		Pattern: "Ellip_test*.txt",
		Cutoff:  25,
		Points:  300,
		Baselines: []Baseline{
			{Name: "No Motor", File: "dynamic data.txt", Clip: true},
			{Name: "No Adjustment", File: "NoAdjustment.txt"},
		},
	}
}

// NamedSeries pairs a series with its legend label.
type NamedSeries struct {
	Name string
	Series
}

// Dataset is everything the averaging chart draws.
type Dataset struct {
	Files     []string
	Baselines []NamedSeries
	Averaged
}

// Load reads the baselines and every run matching cfg.Pattern in sorted
// order, then averages the runs.
func Load(cfg Config) (Dataset, error) {
	var ds Dataset
	for _, b := range cfg.Baselines {
		s, err := ReadRunFile(filepath.Join(cfg.DataDir, b.File))
		if err != nil {
			return Dataset{}, fmt.Errorf("baseline %q: %w", b.Name, err)
		}
		if b.Clip {
			s = Clip(s, cfg.Cutoff)
		}
		ds.Baselines = append(ds.Baselines, NamedSeries{Name: b.Name, Series: s})
	}

	files, err := filepath.Glob(filepath.Join(cfg.DataDir, cfg.Pattern))
	if err != nil {
		return Dataset{}, fmt.Errorf("runavg: pattern %q: %w", cfg.Pattern, err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrNoRuns, filepath.Join(cfg.DataDir, cfg.Pattern))
	}
	runs := make([]Series, 0, len(files))
	for _, f := range files {
		s, err := ReadRunFile(f)
		if err != nil {
			return Dataset{}, err
		}
		log.Debug().Str("file", f).Int("rows", s.Len()).Msg("runavg.Load run")
		runs = append(runs, s)
	}
	ds.Files = files

	ds.Averaged, err = Average(runs, cfg.Cutoff, cfg.Points)
	if err != nil {
		return Dataset{}, err
	}
	log.Info().
		Int("runs", len(runs)).
		Int("baselines", len(ds.Baselines)).
		Float64("cutoff_min", cfg.Cutoff).
		Int("points", cfg.Points).
		Msg("runavg.Load averaged")
	return ds, nil
}
