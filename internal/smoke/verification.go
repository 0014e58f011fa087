package smoke

import (
	"context"
	"fmt"
	"time"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
)

// verifyReport checks the report covers every submitted member and
// tallies the outcomes.
func verifyReport(ctx context.Context, report model.Report, ids []int64, stats *Stats) error {
	stats.Submitted = len(ids)
	for _, id := range ids {
		res, ok := report.Result(id)
		if !ok {
			return fmt.Errorf("member %d missing from the report", id)
		}
		if res.OK {
			stats.Succeeded++
			continue
		}
		stats.SubmitFailed++
		logger.Get().Warn(ctx, "submission failed",
			logger.Int64("memberId", id),
			logger.String("kind", string(res.Kind)),
			logger.String("message", res.Message))
	}
	if len(report.Results) != len(ids) {
		return fmt.Errorf("report has %d results for %d members", len(report.Results), len(ids))
	}
	return nil
}

// waitSettled polls member status until none of ids is busy or wait elapses.
func waitSettled(ctx context.Context, client *HTTPClient, eventID int64, ids []int64, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	pending := append([]int64(nil), ids...)
	for {
		still := pending[:0]
		for _, id := range pending {
			st, err := client.status(ctx, eventID, id)
			if err != nil {
				return err
			}
			if st.Busy {
				still = append(still, id)
			}
		}
		pending = still
		if len(pending) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %v", ErrStillBusy, pending)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(statusPollInterval):
		}
	}
}
