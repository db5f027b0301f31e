package reliability

import (
	"fmt"
	"strings"
)

// MaxFieldScore is the ceiling of every field score.
const MaxFieldScore = 1.0

// FieldScore is the scored state of one configured field.
type FieldScore struct {
	Field    string
	Score    float64
	Weight   float64
	MaxScore float64
	Notes    string
}

// Registry maps field names to scoring strategies.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

func NewRegistry(fallback Strategy) *Registry {
	if fallback == nil {
		fallback = GenericStrategy{}
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		fallback:   fallback,
	}
}

// Register binds field to s, replacing any earlier binding.
func (r *Registry) Register(field string, s Strategy) *Registry {
	r.strategies[strings.TrimSpace(field)] = s
	return r
}

func (r *Registry) Lookup(field string) Strategy {
	if s, ok := r.strategies[field]; ok && s != nil {
		return s
	}
	return r.fallback
}

// DefaultRegistry wires the built-in product heuristics for m.
func DefaultRegistry(m ModelConfig) *Registry {
	currencies := m.ValidCurrencies
	if len(currencies) == 0 {
		currencies = []string{"USD", "EUR", "GBP"}
	}
	extensions := m.AllowedImageExtensions
	if len(extensions) == 0 {
		extensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}

	return NewRegistry(GenericStrategy{}).
		Register("title", PresenceStrategy{Label: "Title"}).
		Register("manufacturer", PresenceStrategy{Label: "Manufacturer"}).
		Register("model_number", PresenceStrategy{Label: "Model number"}).
		Register("description", LengthBandStrategy{Label: "Description", StripHTML: true}).
		Register("alt_text", StepLengthStrategy{Label: "Alt text"}).
		Register("price", MinValueStrategy{Label: "Price"}).
		Register("currency", NewCurrencyStrategy(currencies)).
		Register("image", NewImageStrategy(extensions)).
		Register("technical_specifications", JSONDocumentStrategy{}).
		Register("testing_standard", TestingStandardStrategy{}).
		Register("certifying_organization", CertifierStrategy{}).
		Register("numeric_rating", RatingStrategy{})
}

// Scorer scores entities of one model kind.
type Scorer struct {
	config   ModelConfig
	registry *Registry
}

func NewScorer(m ModelConfig, registry *Registry) *Scorer {
	if registry == nil {
		registry = DefaultRegistry(m)
	}
	return &Scorer{config: m, registry: registry}
}

func (s *Scorer) Config() ModelConfig { return s.config }

// ScoreField scores one field. It never fails: a strategy panic is reported
// as a zero score with the panic text in the notes.
func (s *Scorer) ScoreField(entity Scorable, field string, weight float64) (fs FieldScore) {
	fs = FieldScore{Field: field, Weight: weight, MaxScore: MaxFieldScore}

	defer func() {
		if r := recover(); r != nil {
			fs.Score = 0
			fs.Notes = fmt.Sprintf("Scoring failed: %v", r)
		}
	}()

	var value any
	if entity != nil {
		value, _ = entity.Value(field)
	}
	score, notes := s.registry.Lookup(field).Score(value, s.config.Rules(field))
	fs.Score = roundTo(clamp(score, 0, MaxFieldScore), 3)
	fs.Notes = notes
	return fs
}

// ScoreFields scores every configured field in field-name order.
func (s *Scorer) ScoreFields(entity Scorable) []FieldScore {
	names := s.config.FieldNames()
	out := make([]FieldScore, 0, len(names))
	for _, name := range names {
		out = append(out, s.ScoreField(entity, name, s.config.Fields[name]))
	}
	return out
}
