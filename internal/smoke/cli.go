package smoke

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dakheliyah/vms/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		logFile = "smoke_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// Usage is printed by the smoke command for --help.
const Usage = `VMS coordinator smoke tool

Records one selection per free family member through the coordinator API,
then either clears them again or submits them and checks the report.

Usage:
  go run ./cmd/vms-smoke [options]

Examples:
  # Dry run against a local coordinator
  go run ./cmd/vms-smoke --token $TOKEN

  # Submit for event 12 and keep the report
  go run ./cmd/vms-smoke --token $TOKEN --event 12 --submit --output report.json

Options:
`
