package main

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// logBackups is how many previous runs are kept next to the live log.
const logBackups = 3

// setupLogging points the standard logger at path after shifting older runs
// to path.1 ... path.N. An empty path leaves logging on stderr.
// The returned file is closed by the caller on shutdown.
func setupLogging(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if err := shiftLogs(path, logBackups); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	log.SetOutput(f)
	return f, nil
}

func shiftLogs(path string, keep int) error {
	backup := func(n int) string {
		if n == 0 {
			return path
		}
		return fmt.Sprintf("%s.%d", path, n)
	}

	_ = os.Remove(backup(keep))
	for n := keep - 1; n >= 0; n-- {
		err := os.Rename(backup(n), backup(n+1))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to rotate %s: %w", backup(n), err)
		}
	}
	return nil
}
