package runavg

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/levellog/internal/testutil/testlog"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func runFile(rows ...string) string {
	return "Ellipsometer run\ntime\talign_x\talign_y\n" + strings.Join(rows, "\n") + "\n"
}

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestReadRunSkipsHeaderAndDropsMissing(t *testing.T) {
	testlog.Start(t)
	s, err := ReadRun(strings.NewReader(runFile(
		"0\t1\t2",
		"1\t\t3",
		"2\t5",
		"3\tnan\t1",
		"4\t7\t8\textra",
	)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Len() != 2 || s.Time[1] != 4 || s.AlignX[1] != 7 || s.AlignY[1] != 8 {
		t.Fatalf("unexpected series: %+v", s)
	}
}

func TestReadRunCountsBlankHeaderLines(t *testing.T) {
	testlog.Start(t)
	s, err := ReadRun(strings.NewReader("Ellipsometer run\n\n0\t1\t2\n1\t3\t4\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Len() != 2 || s.Time[0] != 0 || s.AlignX[0] != 1 {
		t.Fatalf("first data row skipped as header: %+v", s)
	}
}

func TestClip(t *testing.T) {
	testlog.Start(t)
	s := Series{Time: []float64{0, 10, 25, 26}, AlignX: []float64{1, 2, 3, 4}, AlignY: []float64{5, 6, 7, 8}}
	c := Clip(s, 25)
	if c.Len() != 3 || c.AlignY[2] != 7 {
		t.Fatalf("unexpected clip: %+v", c)
	}
}

func TestResampleInterpolatesAndHoldsEnds(t *testing.T) {
	testlog.Start(t)
	got, err := Resample([]float64{3, 1, 2, 2}, []float64{30, 10, 20, 99}, []float64{0, 1.5, 2.5, 5})
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	want := []float64{10, 15, 25, 30}
	for i := range want {
		if !almost(got[i], want[i]) {
			t.Fatalf("index %d got=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestResampleSinglePointIsConstant(t *testing.T) {
	testlog.Start(t)
	got, err := Resample([]float64{4}, []float64{0.5}, []float64{0, 10})
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if got[0] != 0.5 || got[1] != 0.5 {
		t.Fatalf("got=%v", got)
	}
	if _, err := Resample(nil, nil, []float64{0}); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestAverage(t *testing.T) {
	testlog.Start(t)
	runs := []Series{
		{Time: []float64{0, 10, 30}, AlignX: []float64{0, 10, 30}, AlignY: []float64{1, 1, 1}},
		{Time: []float64{0, 10}, AlignX: []float64{2, 12}, AlignY: []float64{3, 3}},
	}
	avg, err := Average(runs, 10, 3)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if len(avg.Grid) != 3 || avg.Grid[1] != 5 || avg.Grid[2] != 10 {
		t.Fatalf("unexpected grid: %v", avg.Grid)
	}
	wantX := []float64{1, 6, 11}
	for i := range wantX {
		if !almost(avg.Mean.AlignX[i], wantX[i]) || !almost(avg.Mean.AlignY[i], 2) {
			t.Fatalf("index %d got x=%v y=%v", i, avg.Mean.AlignX[i], avg.Mean.AlignY[i])
		}
	}
	if len(avg.Runs) != 2 || avg.Runs[0].AlignX[2] != 10 {
		t.Fatalf("run not clipped before resampling: %+v", avg.Runs)
	}
}

func TestAverageRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	if _, err := Average(nil, 25, 300); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
	run := Series{Time: []float64{0}, AlignX: []float64{0}, AlignY: []float64{0}}
	if _, err := Average([]Series{run}, 25, 1); !errors.Is(err, ErrInvalidGrid) {
		t.Fatalf("expected ErrInvalidGrid, got %v", err)
	}
	late := Series{Time: []float64{30}, AlignX: []float64{0}, AlignY: []float64{0}}
	if _, err := Average([]Series{late}, 25, 10); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("expected ErrTooFewPoints for run past cutoff, got %v", err)
	}
}

func TestLoadAndChart(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	writeFile(t, dir, "dynamic data.txt", runFile("0\t0\t0", "20\t1\t1", "40\t2\t2"))
	writeFile(t, dir, "NoAdjustment.txt", runFile("0\t0\t0", "40\t4\t4"))
	writeFile(t, dir, "Ellip_test2.txt", runFile("0\t2\t2", "25\t2\t2"))
	writeFile(t, dir, "Ellip_test1.txt", runFile("0\t0\t0", "25\t0\t0"))
	writeFile(t, dir, "notes.txt", "ignored")

	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Points = 5
	ds, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Files) != 2 || filepath.Base(ds.Files[0]) != "Ellip_test1.txt" {
		t.Fatalf("unexpected run files: %v", ds.Files)
	}
	if ds.Baselines[0].Name != "No Motor" || ds.Baselines[0].Len() != 2 {
		t.Fatalf("clipped baseline got=%+v", ds.Baselines[0])
	}
	if ds.Baselines[1].Len() != 2 || ds.Baselines[1].Time[1] != 40 {
		t.Fatalf("raw baseline got=%+v", ds.Baselines[1])
	}
	for i, v := range ds.Mean.AlignX {
		if !almost(v, 1) {
			t.Fatalf("mean index %d got=%v", i, v)
		}
	}

	out := filepath.Join(dir, "out", "average.png")
	if err := WriteChart(ds, out); err != nil {
		t.Fatalf("chart: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("chart missing: %v", err)
	}
}

func TestLoadMissingBaseline(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	if _, err := Load(cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing baseline error, got %v", err)
	}
}

func TestLoadNoRuns(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Baselines = nil
	if _, err := Load(cfg); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
}
