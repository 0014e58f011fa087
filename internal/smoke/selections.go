package smoke

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
)

// applySelections records the plan concurrently and returns the ids of the
// members whose selection was accepted, in ascending order. Rejected
// selections are counted, not fatal.
func applySelections(ctx context.Context, client *HTTPClient, config *Config, eventID int64, plan []model.Selection, stats *Stats) []int64 {
	log := logger.Get().Named("smoke")
	log.Info(ctx, "recording selections",
		logger.Int("planned", len(plan)),
		logger.Int("workers", config.Workers))

	var (
		mu       sync.Mutex
		accepted = make([]int64, 0, len(plan))
		failed   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for _, sel := range plan {
		g.Go(func() error {
			if err := client.selectVenue(gctx, eventID, sel); err != nil {
				atomic.AddInt64(&failed, 1)
				if config.Verbose {
					log.Warn(gctx, "selection rejected",
						logger.Int64("memberId", sel.MemberID),
						logger.Int64("venueId", sel.VenueID),
						logger.Error(err))
				}
				return nil
			}
			mu.Lock()
			accepted = append(accepted, sel.MemberID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(accepted, func(i, j int) bool { return accepted[i] < accepted[j] })
	stats.Selected = len(accepted)
	stats.SelectFailed = int(atomic.LoadInt64(&failed))
	return accepted
}

// clearSelections drops the pending selections again. Used when the run
// must not write to the backend.
func clearSelections(ctx context.Context, client *HTTPClient, eventID int64, ids []int64, stats *Stats) error {
	for _, id := range ids {
		if err := client.clearSelection(ctx, eventID, id); err != nil {
			return err
		}
		stats.Cleared++
	}
	return nil
}
