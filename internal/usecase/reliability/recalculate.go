package reliability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustscore/internal/bootstrap/logging"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/ports"
)

// RecalcContext records who or what triggered a recalculation.
type RecalcContext struct {
	Source       string
	ActorUserID  *string
	ActorService *string
	Message      string
}

func (rc RecalcContext) withDefaults() RecalcContext {
	rc.Source = strings.TrimSpace(rc.Source)
	if rc.Source == "" {
		rc.Source = domainreliability.DefaultSource
	}
	if strings.TrimSpace(rc.Message) == "" {
		rc.Message = domainreliability.DefaultMessage
	}
	rc.ActorUserID = trimmedOrNil(rc.ActorUserID)
	rc.ActorService = trimmedOrNil(rc.ActorService)
	return rc
}

// Outcome is what one committed recalculation wrote.
type Outcome struct {
	Summary  domainreliability.Summary
	Fields   []domainreliability.FieldScore
	Entry    domainreliability.AuditLogEntry
	Previous *domainreliability.Summary
}

// Recalculate scores entity and atomically replaces its summary and field
// rows while appending one checksummed audit entry. Scoring runs before any
// lock is taken; persistence runs under the entity's key lock in a single
// transaction.
func (s *Service) Recalculate(ctx context.Context, entity domainreliability.Scorable, rc RecalcContext) (Outcome, error) {
	if ctx == nil {
		return Outcome{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, errs.Wrap(err, "check context")
	}
	if entity == nil {
		return Outcome{}, fmt.Errorf("%w: entity is required", domainreliability.ErrPrecondition)
	}

	ref := entity.Ref()
	if err := ref.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", domainreliability.ErrPrecondition, err)
	}
	scorer, err := s.scorer(ref.Kind)
	if err != nil {
		return Outcome{}, err
	}
	rc = rc.withDefaults()

	ctx, span := s.tracer.Start(ctx, "reliability.recalculate", trace.WithAttributes(
		attribute.String("reliability.model", string(ref.Kind)),
		attribute.String("reliability.foreign_key", ref.ID),
		attribute.String("reliability.source", rc.Source),
	))
	defer span.End()

	logCtx := logging.WithAttrs(logging.WithSpan(ctx),
		slog.String("component", "usecase.reliability"),
		slog.String("model", string(ref.Kind)),
		slog.String("entity_id", ref.ID),
	)

	outcome, err := s.recalculate(ctx, scorer, entity, ref, rc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	span.SetAttributes(attribute.Float64("reliability.total_score", outcome.Summary.TotalScore))
	s.invalidateSummaryBestEffort(logCtx, ref)

	logging.Info(logCtx, "reliability scores recalculated",
		slog.Float64("total_score", outcome.Summary.TotalScore),
		slog.Float64("completeness_percent", outcome.Summary.CompletenessPercent),
		slog.String("scoring_version", outcome.Summary.ScoringVersion),
		slog.String("source", rc.Source),
	)
	return outcome, nil
}

func (s *Service) recalculate(
	ctx context.Context,
	scorer *domainreliability.Scorer,
	entity domainreliability.Scorable,
	ref domainreliability.EntityRef,
	rc RecalcContext,
) (Outcome, error) {
	m := scorer.Config()
	fields := scorer.ScoreFields(entity)
	agg := domainreliability.AggregateScores(fields, m.CompletenessMethod, m.Normalize)
	snapshot, err := domainreliability.MarshalFieldScores(fields)
	if err != nil {
		return Outcome{}, errs.WithStack(err)
	}

	unlock, err := s.locker.Lock(ctx, ref.LockKey())
	if err != nil {
		return Outcome{}, errs.Wrapf(err, "lock %s", ref)
	}
	defer unlock()

	var outcome Outcome
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.summaries.LockKey(txCtx, ref); err != nil {
			return err
		}

		var previous *domainreliability.Summary
		prior, err := s.summaries.FindByKey(txCtx, ref)
		switch {
		case err == nil:
			previous = &prior
		case errors.Is(err, ports.ErrSummaryNotFound):
		default:
			return errs.Wrap(err, "load prior summary")
		}

		now := domainreliability.FormatTimestamp(s.now())
		summary := domainreliability.Summary{
			ID:                  s.newID(),
			Ref:                 ref,
			TotalScore:          agg.TotalScore,
			CompletenessPercent: agg.CompletenessPercent,
			FieldScoresJSON:     snapshot,
			ScoringVersion:      m.ScoringVersion,
			LastSource:          rc.Source,
			LastCalculated:      now,
			UpdatedByUserID:     rc.ActorUserID,
			UpdatedByService:    rc.ActorService,
			Created:             now,
			Modified:            now,
		}
		if previous != nil {
			summary.ID = previous.ID
			summary.Created = previous.Created
		}
		if err := summary.Validate(s.cfg); err != nil {
			return errs.WithStack(err)
		}

		stored, err := s.summaries.Upsert(txCtx, summary)
		if err != nil {
			return err
		}
		if err := s.fields.DeleteAllByKey(txCtx, ref); err != nil {
			return err
		}
		if err := s.fields.InsertMany(txCtx, ref, fields); err != nil {
			return err
		}

		entry := domainreliability.AuditLogEntry{
			ID:                s.newID(),
			Ref:               ref,
			ToTotalScore:      agg.TotalScore,
			ToFieldScoresJSON: snapshot,
			Source:            rc.Source,
			ActorUserID:       rc.ActorUserID,
			ActorService:      rc.ActorService,
			Message:           rc.Message,
			Created:           now,
		}
		if previous != nil {
			fromScore := previous.TotalScore
			fromJSON := previous.FieldScoresJSON
			entry.FromTotalScore = &fromScore
			entry.FromFieldScoresJSON = &fromJSON
		}
		checksum, err := domainreliability.ComputeChecksum(entry.ChecksumPayload())
		if err != nil {
			return errs.WithStack(err)
		}
		entry.ChecksumSHA256 = checksum
		if err := entry.Validate(s.cfg); err != nil {
			return errs.WithStack(err)
		}
		if err := s.logs.Insert(txCtx, entry); err != nil {
			return err
		}

		outcome = Outcome{
			Summary:  stored,
			Fields:   fields,
			Entry:    entry,
			Previous: previous,
		}
		return nil
	})
	if err != nil {
		return Outcome{}, errs.Wrapf(err, "recalculate %s", ref)
	}
	return outcome, nil
}

// RecalculateBestEffort is Recalculate for save hooks: failures and panics are
// logged with their stack and reported as false, never returned.
func (s *Service) RecalculateBestEffort(ctx context.Context, entity domainreliability.Scorable, rc RecalcContext) (ok bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.reliability"))

	defer func() {
		if r := recover(); r != nil {
			logging.Error(logCtx, "reliability recalculation panicked", slog.Any("err", errs.Loggable(errs.Recover(r))))
			ok = false
		}
	}()

	if entity != nil {
		ref := entity.Ref()
		logCtx = logging.WithAttrs(logCtx,
			slog.String("model", string(ref.Kind)),
			slog.String("entity_id", ref.ID),
		)
	}

	if _, err := s.Recalculate(ctx, entity, rc); err != nil {
		logging.Error(logCtx, "reliability recalculation failed", slog.Any("err", errs.Loggable(errs.WithStack(err))))
		return false
	}
	return true
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
