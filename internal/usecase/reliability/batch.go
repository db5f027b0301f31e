package reliability

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"trustscore/internal/bootstrap/logging"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
)

const DefaultBatchConcurrency = 4

type BatchFailure struct {
	Ref domainreliability.EntityRef
	Err error
}

type BatchResult struct {
	Processed int
	Failed    int
	Failures  []BatchFailure
}

// RecalculateBatch recalculates entities with at most concurrency in flight.
// A failing entity is recorded and the batch moves on; entities sharing a key
// are serialized by the key lock.
func (s *Service) RecalculateBatch(ctx context.Context, entities []domainreliability.Scorable, rc RecalcContext, concurrency int) (BatchResult, error) {
	if ctx == nil {
		return BatchResult{}, errors.New("context is required")
	}
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.reliability.batch"))

	var (
		mu     sync.Mutex
		result BatchResult
	)
	record := func(ref domainreliability.EntityRef, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			result.Processed++
			return
		}
		result.Failed++
		result.Failures = append(result.Failures, BatchFailure{Ref: ref, Err: err})
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, entity := range entities {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			var ref domainreliability.EntityRef
			defer func() {
				if r := recover(); r != nil {
					err = nil
					record(ref, errs.Recover(r))
				}
			}()
			if entity != nil {
				ref = entity.Ref()
			}
			_, recalcErr := s.Recalculate(ctx, entity, rc)
			if recalcErr != nil {
				logging.Warn(logCtx, "batch entity failed",
					slog.String("model", string(ref.Kind)),
					slog.String("entity_id", ref.ID),
					slog.Any("err", errs.Loggable(recalcErr)),
				)
			}
			record(ref, recalcErr)
			return nil
		})
	}
	_ = g.Wait()

	logging.Info(logCtx, "batch recalculation finished",
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
	)
	if err := ctx.Err(); err != nil {
		return result, errs.Wrap(err, "batch interrupted")
	}
	return result, nil
}
