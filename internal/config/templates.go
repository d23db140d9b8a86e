package config

import (
	"fmt"
	"os"
	"path/filepath"
)

func Template() string {
	return levellogTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(levellogTemplate), 0o644)
}

const levellogTemplate = `# capture
transport = "serial"          # serial | replay
port = "/dev/ttyACM0"         # device path, COM port, or replay file
baud = 9600
parity = "N"
stop_bits = 1
read_timeout = "1s"
max_line_bytes = 4096
open_attempts = 1

output = "leveling_data_log.csv"
output_mode = "truncate"      # truncate | append | exclusive
sync_every = 0                # fsync every N rows, 0 = close only
strict_numeric = false
header_token = "Time_ms"
echo = false
metrics_textfile = ""
status_interval = "30s"

[stats]
threshold_mm = 0.04
bins = 50
plot_dir = ""

[average]
data_dir = "EllipsometerLevelData"
pattern = "Ellip_test*.txt"
cutoff_minutes = 25.0
points = 300
chart = "average.png"

[[average.baselines]]
name = "No Motor"
file = "dynamic data.txt"
clip = true

[[average.baselines]]
name = "No Adjustment"
file = "NoAdjustment.txt"
clip = false
`
