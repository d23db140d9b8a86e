package transport

import "os"

// openReplay serves a previously recorded raw stream from disk. End of
// file closes the transport.
func openReplay(cfg Config) (Port, error) {
	f, err := os.Open(cfg.Name)
	if err != nil {
		return nil, err
	}
	return f, nil
}
