package explorecheck

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/buzz/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and, when logFile is set, to that
// file as well. The returned func closes the file.
func SetupLogging(logFile, format string) (func(), error) {
	if logFile == "" {
		if err := logger.InitWithFormat(os.Stdout, format); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return func() {}, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithFormat(io.MultiWriter(os.Stdout, file), format); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return func() { _ = file.Close() }, nil
}

// ShowHelp prints usage information for the check tool.
func ShowHelp() {
	os.Stdout.WriteString(`Explore Check Tool
==================

Triggers a trending recalculation on a running service, waits for the job
and verifies the category leaderboards and the personalized feed.

Usage:
  go run ./cmd/explore-check [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -token string
        Bearer token with the admin claim (default $BUZZ_CHECK_TOKEN)
  -categories string
        Comma separated categories to walk (default: the built-in defaults)
  -pages int
        Pages to walk per category (default 3)
  -limit int
        Page size (default 20)
  -workers int
        Concurrent category walkers (default 4)
  -user string
        User id whose feed is checked; ignored by services that verify tokens (default: anonymous)
  -force-all
        Rescore every tweet regardless of recent activity
  -timeout duration
        HTTP request timeout (default 10s)
  -job-timeout duration
        How long to wait for the recalculation (default 5m)
  -log string
        Also write log output to this file
  -verbose
        Log every category walk
  -help
        Show this help message

Examples:
  # Check a local service
  go run ./cmd/explore-check

  # Full rescore, deeper walk
  go run ./cmd/explore-check -force-all -pages 10 -limit 50 -token $TOKEN
`)
}
