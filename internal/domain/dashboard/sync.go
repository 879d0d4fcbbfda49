package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

// SyncLogs creates several logs in parallel. The first failure cancels the
// creates that have not started yet; logs already created stay committed
// and are listed in the result next to the failed and skipped days. The
// result is Complete only when every day was created.
func (s *service) SyncLogs(ctx context.Context, cropID int64, inputs []LogInput) (SyncResult, error) {
	result := SyncResult{
		Created: []cultivation.DailyLog{},
		Failed:  []SyncFailure{},
		Skipped: []int{},
	}
	if len(inputs) == 0 {
		result.Complete = true
		return result, nil
	}
	seen := make(map[int]struct{}, len(inputs))
	for _, in := range inputs {
		if in.DayNumber < 1 {
			return result, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("day_number must be at least 1, got %d", in.DayNumber), nil)
		}
		if _, dup := seen[in.DayNumber]; dup {
			return result, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("day %d appears more than once", in.DayNumber), nil)
		}
		seen[in.DayNumber] = struct{}{}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SyncConcurrency)
	for _, in := range inputs {
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				result.Skipped = append(result.Skipped, in.DayNumber)
				mu.Unlock()
				return nil
			}
			log, err := s.backend.CreateLog(gctx, cropID, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				// The backend may or may not have committed this day.
				result.Failed = append(result.Failed, SyncFailure{Day: in.DayNumber, Error: "cancelled before the backend confirmed the log", Cancelled: true})
				return nil
			}
			if err != nil {
				result.Failed = append(result.Failed, SyncFailure{Day: in.DayNumber, Error: err.Error()})
				return fmt.Errorf("day %d: %w", in.DayNumber, err)
			}
			result.Created = append(result.Created, log)
			return nil
		})
	}
	firstErr := g.Wait()

	sort.Slice(result.Created, func(i, j int) bool { return result.Created[i].DayNumber < result.Created[j].DayNumber })
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].Day < result.Failed[j].Day })
	sort.Ints(result.Skipped)

	if firstErr == nil && (len(result.Failed) > 0 || len(result.Skipped) > 0) {
		firstErr = ctx.Err()
		if firstErr == nil {
			firstErr = context.Canceled
		}
	}
	if firstErr != nil {
		s.logger.Warn("log sync incomplete",
			"crop_id", cropID,
			"created", len(result.Created),
			"failed", len(result.Failed),
			"skipped", len(result.Skipped),
			"error", firstErr,
		)
		return result, fmt.Errorf("%w: %w", ErrPartialSync, firstErr)
	}
	result.Complete = true
	return result, nil
}
