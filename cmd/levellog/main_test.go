package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/levellog/internal/testutil/testlog"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCaptureReplayThenStats(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.txt")
	data := "Time_ms,LevelX,LevelY,inputVoltageX,inputVoltageY,inputVoltageSUM\r\n" +
		"1000,5,5,5,5,10\r\n" +
		"garbage\r\n" +
		"1100,5,5,5.04,5,10\r\n" +
		"\r\n" +
		"1200,5,5,5,5.08,10\r\n"
	if err := os.WriteFile(raw, []byte(data), 0o644); err != nil {
		t.Fatalf("write replay: %v", err)
	}
	logPath := filepath.Join(dir, "out", "log.csv")

	out, err := execute(t, "capture", "--transport", "replay", "--port", raw, "--output", logPath)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !strings.Contains(out, "3 records, 2 ignored, 1 rejected (transport_closed)") {
		t.Fatalf("unexpected capture summary: %q", out)
	}

	plots := filepath.Join(dir, "plots")
	out, err = execute(t, "stats", logPath, "--threshold", "0.03", "--plot-dir", plots)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "within 0.030 mm: 2/3") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
	if strings.Count(out, "wrote ") != 4 {
		t.Fatalf("expected four charts:\n%s", out)
	}
}

func TestCaptureOpenFailureIsError(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	_, err := execute(t, "capture",
		"--transport", "replay",
		"--port", filepath.Join(dir, "missing.txt"),
		"--output", filepath.Join(dir, "log.csv"))
	if err == nil || !strings.Contains(err.Error(), "fatal") {
		t.Fatalf("expected fatal capture error, got %v", err)
	}
}

func TestCaptureRejectsBadMode(t *testing.T) {
	testlog.Start(t)
	if _, err := execute(t, "capture", "--mode", "rotate"); err == nil {
		t.Fatalf("expected mode error")
	}
}

func TestAverageCommand(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	files := map[string]string{
		"dynamic data.txt": "h\nh\n0\t0\t0\n30\t1\t1\n",
		"NoAdjustment.txt": "h\nh\n0\t0\t0\n30\t1\t1\n",
		"Ellip_test1.txt":  "h\nh\n0\t1\t3\n25\t1\t3\n",
		"Ellip_test2.txt":  "h\nh\n0\t3\t5\n25\t3\t5\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	chart := filepath.Join(dir, "avg.png")
	out, err := execute(t, "average", "--data-dir", dir, "--points", "10", "--chart", chart)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if !strings.Contains(out, "averaged 2 runs") || !strings.Contains(out, "align_x=2.00000 align_y=4.00000") {
		t.Fatalf("unexpected average output:\n%s", out)
	}
	if _, err := os.Stat(chart); err != nil {
		t.Fatalf("chart missing: %v", err)
	}
}

func TestConfigTemplateAndValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "levellog.toml")
	if _, err := execute(t, "config", "template", path); err != nil {
		t.Fatalf("template: %v", err)
	}
	if _, err := execute(t, "config", "template", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, err := execute(t, "config", "template", path, "--force"); err != nil {
		t.Fatalf("forced template: %v", err)
	}
	out, err := execute(t, "config", "validate", path)
	if err != nil || !strings.Contains(out, "Validated") {
		t.Fatalf("validate got=%q err=%v", out, err)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte(`output_mode = "rotate"`), 0o644); err != nil {
		t.Fatalf("write bad config: %v", err)
	}
	if _, err := execute(t, "config", "validate", bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := execute(t, "--config", bad, "stats", "x.csv"); err == nil {
		t.Fatalf("expected config error to stop stats")
	}
}

func TestUnknownLogLevel(t *testing.T) {
	testlog.Start(t)
	if _, err := execute(t, "--log-level", "loud", "config", "template", "-"); err == nil {
		t.Fatalf("expected log level error")
	}
}
