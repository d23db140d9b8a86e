package transport

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the byte source behind a Reader.
type Kind string

const (
	KindSerial Kind = "serial"
	KindReplay Kind = "replay"
)

// Config describes one transport.
type Config struct {
	Kind         Kind
	Name         string
	Baud         int
	ReadTimeout  time.Duration
	Size         byte
	Parity       string
	StopBits     int
	MaxLineBytes int
	OpenAttempts int
	Backoff      BackoffConfig
}

// DefaultConfig matches the controller firmware: USB CDC at 9600 baud,
// 8N1, one second read timeout.
func DefaultConfig() Config {
	return Config{
		Kind:         KindSerial,
		Name:         "/dev/ttyACM0",
		Baud:         9600,
		ReadTimeout:  time.Second,
		Size:         8,
		Parity:       "N",
		StopBits:     1,
		MaxLineBytes: 4096,
		OpenAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 500 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(string(c.Kind)) == "" {
		c.Kind = def.Kind
	}
	if c.Baud <= 0 {
		c.Baud = def.Baud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.Size == 0 {
		c.Size = def.Size
	}
	if strings.TrimSpace(c.Parity) == "" {
		c.Parity = def.Parity
	}
	if c.StopBits == 0 {
		c.StopBits = def.StopBits
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = def.MaxLineBytes
	}
	if c.OpenAttempts <= 0 {
		c.OpenAttempts = def.OpenAttempts
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = def.Backoff
	}
	return c
}

func (c Config) Validate() error {
	switch c.Kind {
	case KindSerial, KindReplay:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if c.Kind == KindSerial {
		if _, err := serialParity(c.Parity); err != nil {
			return err
		}
		if _, err := serialStopBits(c.StopBits); err != nil {
			return err
		}
	}
	return nil
}
