package reliability

import (
	"context"
	"errors"
	"fmt"

	domainreliability "trustscore/internal/domain/reliability"
)

// Preview scores entity without persisting anything. The entity id may be
// empty, e.g. for a form that has not been saved yet.
func (s *Service) Preview(ctx context.Context, entity domainreliability.Scorable) (domainreliability.Evaluation, error) {
	if ctx == nil {
		return domainreliability.Evaluation{}, errors.New("context is required")
	}
	if entity == nil {
		return domainreliability.Evaluation{}, fmt.Errorf("%w: entity is required", domainreliability.ErrPrecondition)
	}
	scorer, err := s.scorer(entity.Ref().Kind)
	if err != nil {
		return domainreliability.Evaluation{}, err
	}
	return domainreliability.Evaluate(scorer, entity, s.cfg.UI), nil
}
