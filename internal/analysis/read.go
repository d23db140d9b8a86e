package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/levellog/internal/protocol"
)

var (
	ErrMissingColumn = errors.New("analysis: missing column")
	ErrNoSamples     = errors.New("analysis: no usable samples")
)

// receiptLayout parses receipt times with or without fractional seconds.
const receiptLayout = "2006-01-02T15:04:05"

// Sample is one numeric row of a capture log.
type Sample struct {
	Time     time.Time
	LevelX   float64
	LevelY   float64
	VoltageX float64
	VoltageY float64
	VoltageS float64
}

// ReadLog parses a capture log by header name. Rows with unparseable
// values or a zero voltage sum are skipped and counted.
func ReadLog(r io.Reader) ([]Sample, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("analysis: read header: %w", err)
	}
	idx := make(map[string]int, len(head))
	for i, name := range head {
		idx[strings.TrimSpace(name)] = i
	}
	cols := make([]int, len(protocol.LogColumns))
	for i, name := range protocol.LogColumns {
		j, ok := idx[name]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[i] = j
	}

	var (
		out     []Sample
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("analysis: read row: %w", err)
		}
		s, ok := parseSample(rec, cols)
		if !ok {
			skipped++
			continue
		}
		out = append(out, s)
	}
	return out, skipped, nil
}

func parseSample(rec []string, cols []int) (Sample, bool) {
	get := func(i int) (string, bool) {
		if cols[i] >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[cols[i]]), true
	}
	raw, ok := get(0)
	if !ok {
		return Sample{}, false
	}
	ts, err := time.ParseInLocation(receiptLayout, raw, time.Local)
	if err != nil {
		return Sample{}, false
	}

	// columns 2..6: LevelX, LevelY, inputVoltageX, inputVoltageY, inputVoltageSUM
	var vals [5]float64
	for i := range vals {
		raw, ok := get(i + 2)
		if !ok {
			return Sample{}, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Sample{}, false
		}
		vals[i] = v
	}
	if vals[4] == 0 {
		return Sample{}, false
	}
	return Sample{
		Time:     ts,
		LevelX:   vals[0],
		LevelY:   vals[1],
		VoltageX: vals[2],
		VoltageY: vals[3],
		VoltageS: vals[4],
	}, true
}
