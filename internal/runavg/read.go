package runavg

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	ErrTooFewPoints = errors.New("runavg: too few points")
	ErrNoRuns       = errors.New("runavg: no run files")
	ErrInvalidGrid  = errors.New("runavg: invalid grid")
)

// HeaderLines is the number of leading lines skipped in a run file.
const HeaderLines = 2

// Series is a run's aligned position over time. Time is in minutes.
type Series struct {
	Time   []float64
	AlignX []float64
	AlignY []float64
}

func (s Series) Len() int {
	return len(s.Time)
}

// ReadRun parses a tab-delimited run. The first HeaderLines raw lines are
// skipped, blank or not. Rows with a missing or non-numeric cell in the
// first three columns are dropped.
func ReadRun(r io.Reader) (Series, error) {
	br := bufio.NewReader(r)
	for i := 0; i < HeaderLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return Series{}, nil
			}
			return Series{}, fmt.Errorf("runavg: read header: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var s Series
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, fmt.Errorf("runavg: read row: %w", err)
		}
		var vals [3]float64
		ok := len(rec) >= len(vals)
		for i := 0; ok && i < len(vals); i++ {
			vals[i], ok = cell(rec[i])
		}
		if !ok {
			continue
		}
		s.Time = append(s.Time, vals[0])
		s.AlignX = append(s.AlignX, vals[1])
		s.AlignY = append(s.AlignY, vals[2])
	}
	return s, nil
}

func cell(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ReadRunFile opens path and parses it with ReadRun.
func ReadRunFile(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("runavg: open %s: %w", path, err)
	}
	defer f.Close()
	s, err := ReadRun(f)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
