package reliability

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/infrastructure/lock"
	"trustscore/internal/ports"
)

const tracerName = "trustscore/usecase/reliability"

// Deps are the ports the service runs on. Cache, Locker, Tracer and the
// readers are optional.
type Deps struct {
	Summaries  ports.SummaryRepository
	Fields     ports.FieldScoreRepository
	Logs       ports.AuditLogRepository
	UnitOfWork ports.UnitOfWork

	SummaryReader ports.SummaryReader
	FieldReader   ports.FieldScoreReader
	LogReader     ports.AuditLogReader

	Locker   ports.KeyLocker
	Cache    ports.Cache
	CacheTTL time.Duration
	Tracer   trace.Tracer
}

type Service struct {
	cfg        domainreliability.Config
	registries map[domainreliability.ModelKind]*domainreliability.Registry
	scorers    map[domainreliability.ModelKind]*domainreliability.Scorer

	summaries ports.SummaryRepository
	fields    ports.FieldScoreRepository
	logs      ports.AuditLogRepository
	uow       ports.UnitOfWork

	summaryReader ports.SummaryReader
	fieldReader   ports.FieldScoreReader
	logReader     ports.AuditLogReader

	locker   ports.KeyLocker
	cache    ports.Cache
	cacheTTL time.Duration
	tracer   trace.Tracer

	// cacheMu orders cache fills against invalidations; cacheGen counts
	// invalidations so a fill loaded before one is dropped.
	cacheMu  sync.Mutex
	cacheGen uint64

	now   func() time.Time
	newID func() string
}

// NewService validates cfg once and builds one scorer per configured model.
func NewService(cfg domainreliability.Config, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Summaries == nil || deps.Fields == nil || deps.Logs == nil {
		return nil, errors.New("reliability repositories are required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("reliability unit of work is required")
	}

	registries := make(map[domainreliability.ModelKind]*domainreliability.Registry, len(cfg.Models))
	scorers := make(map[domainreliability.ModelKind]*domainreliability.Scorer, len(cfg.Models))
	for kind, m := range cfg.Models {
		registries[kind] = domainreliability.DefaultRegistry(m)
		scorers[kind] = domainreliability.NewScorer(m, registries[kind])
	}

	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Service{
		cfg:           cfg,
		registries:    registries,
		scorers:       scorers,
		summaries:     deps.Summaries,
		fields:        deps.Fields,
		logs:          deps.Logs,
		uow:           deps.UnitOfWork,
		summaryReader: deps.SummaryReader,
		fieldReader:   deps.FieldReader,
		logReader:     deps.LogReader,
		locker:        locker,
		cache:         deps.Cache,
		cacheTTL:      deps.CacheTTL,
		tracer:        tracer,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

// RegisterStrategy replaces the heuristic of one field of kind. Call it
// before the service is shared between goroutines.
func (s *Service) RegisterStrategy(kind domainreliability.ModelKind, field string, strategy domainreliability.Strategy) error {
	registry, ok := s.registries[kind]
	if !ok {
		_, err := s.scorer(kind)
		return err
	}
	registry.Register(field, strategy)
	return nil
}

func (s *Service) Config() domainreliability.Config { return s.cfg }

func (s *Service) scorer(kind domainreliability.ModelKind) (*domainreliability.Scorer, error) {
	scorer, ok := s.scorers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %w: no configuration for %q", domainreliability.ErrPrecondition, domainreliability.ErrUnknownModel, kind)
	}
	return scorer, nil
}
