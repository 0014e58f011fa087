package main

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/dakheliyah/vms/internal/smoke"
)

// Default configuration constants.
const (
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultSettleWait = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func newConfig(args []string) (*smoke.Config, error) {
	config := &smoke.Config{}
	fs := pflag.NewFlagSet("vms-smoke", pflag.ContinueOnError)
	fs.Usage = func() {
		os.Stdout.WriteString(smoke.Usage)
		fs.SetOutput(os.Stdout)
		fs.PrintDefaults()
	}
	fs.StringVar(&config.BaseURL, "url", "http://localhost:9080", "Base URL of the coordinator")
	fs.StringVar(&config.Token, "token", os.Getenv("VMS_TOKEN"), "Session token (default $VMS_TOKEN)")
	fs.Int64Var(&config.EventID, "event", 0, "Event id; 0 uses the active event")
	fs.IntVar(&config.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent selection requests")
	fs.DurationVar(&config.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	fs.BoolVar(&config.Submit, "submit", false, "Submit the selections instead of clearing them")
	fs.DurationVar(&config.SettleWait, "settle", defaultSettleWait, "How long to wait for members to stop being busy")
	fs.StringVar(&config.OutputFile, "output", "", "Report file (default: smoke_report_TIMESTAMP.json)")
	fs.StringVar(&config.LogFile, "log", "", "Log file (default: smoke_log_TIMESTAMP.log)")
	fs.BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}

func main() {
	config, err := newConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString("invalid flags: " + err.Error() + "\n")
		os.Exit(2)
	}

	if err := smoke.SetupLogging(config.LogFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if _, err := smoke.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
