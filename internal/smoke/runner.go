package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Run executes a complete smoke run against the coordinator. Without
// config.Submit the selections are recorded and then cleared again, so
// nothing reaches the preference backend.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("smoke")

	log.Info(ctx, "starting coordinator smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int64("eventId", config.EventID),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("submit", config.Submit))

	client := newHTTPClient(config)

	// Step 1: Check service health
	if err := client.healthy(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Resolve the event
	eventID, err := resolveEvent(ctx, client, config)
	if err != nil {
		return stats, err
	}

	// Step 3: Load the roster and plan one selection per free member
	members, err := client.members(ctx, eventID)
	if err != nil {
		return stats, fmt.Errorf("roster retrieval failed: %w", err)
	}
	stats.Members = len(members)
	plan := planSelections(members, stats)
	if len(plan) == 0 {
		return stats, ErrNothingPlanned
	}

	// Step 4: Record the selections concurrently
	ids := applySelections(ctx, client, config, eventID, plan, stats)
	if len(ids) == 0 {
		return stats, fmt.Errorf("%w: every selection was rejected", ErrNothingPlanned)
	}

	// Step 5: Submit or roll back
	if config.Submit {
		report, err := client.submit(ctx, eventID, ids)
		if err != nil {
			return stats, fmt.Errorf("submission failed: %w", err)
		}
		if err := verifyReport(ctx, report, ids, stats); err != nil {
			return stats, fmt.Errorf("report verification failed: %w", err)
		}
		if err := waitSettled(ctx, client, eventID, ids, config.SettleWait); err != nil {
			return stats, err
		}
		if err := saveReport(ctx, config, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	} else if err := clearSelections(ctx, client, eventID, ids, stats); err != nil {
		return stats, fmt.Errorf("clearing selections failed: %w", err)
	}

	// Step 6: Read capacity back
	venues, err := client.venues(ctx, eventID, config.Submit)
	if err != nil {
		return stats, fmt.Errorf("venue retrieval failed: %w", err)
	}
	for _, v := range venues {
		stats.VenuesAvailable += v.Availability
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "smoke run completed")
	return stats, nil
}

func resolveEvent(ctx context.Context, client *HTTPClient, config *Config) (int64, error) {
	if config.EventID > 0 {
		return config.EventID, nil
	}
	ev, err := client.activeEvent(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoActiveEvent, err)
	}
	if ev.ID <= 0 {
		return 0, ErrNoActiveEvent
	}
	logger.Get().Info(ctx, "using active event",
		logger.Int64("eventId", ev.ID),
		logger.String("name", ev.Name))
	return ev.ID, nil
}

// saveReport writes the submission report as indented JSON.
func saveReport(ctx context.Context, config *Config, report model.Report) error {
	filename := config.OutputFile
	if filename == "" {
		filename = "smoke_report_" + time.Now().Format("20060102_150405") + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Get().Info(ctx, "report saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Succeeded) / float64(stats.Submitted) * percentMultiplier
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("members", stats.Members),
		logger.Int("locked", stats.Locked),
		logger.Int("planned", stats.Planned),
		logger.Int("selected", stats.Selected),
		logger.Int("selectFailed", stats.SelectFailed),
		logger.Int("submitted", stats.Submitted),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("submitFailed", stats.SubmitFailed),
		logger.Int("cleared", stats.Cleared),
		logger.Int("venuesAvailable", stats.VenuesAvailable),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate))
}
