package reliability

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type CompletenessMethod string

const (
	CompletenessBinary   CompletenessMethod = "binary"
	CompletenessWeighted CompletenessMethod = "weighted"
)

func ParseCompletenessMethod(s string) (CompletenessMethod, error) {
	switch CompletenessMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompletenessBinary:
		return CompletenessBinary, nil
	case CompletenessWeighted:
		return CompletenessWeighted, nil
	default:
		return "", fmt.Errorf("%w: completeness method %q", ErrInvalidConfig, s)
	}
}

// FieldRules holds the tunable constants of one field, e.g. min_length.
type FieldRules map[string]float64

// Get returns rules[key] or def when unset.
func (r FieldRules) Get(key string, def float64) float64 {
	if r == nil {
		return def
	}
	if v, ok := r[key]; ok {
		return v
	}
	return def
}

const (
	RuleMinLength       = "min_length"
	RuleGoodLength      = "good_length"
	RuleExcellentLength = "excellent_length"
	RuleMinValue        = "min_value"
)

// ModelConfig is the scoring configuration of one model kind.
type ModelConfig struct {
	Fields                 map[string]float64
	ScoringVersion         string
	Normalize              bool
	CompletenessMethod     CompletenessMethod
	Thresholds             map[string]FieldRules
	ValidCurrencies        []string
	AllowedImageExtensions []string
}

// FieldNames returns the configured fields sorted by name.
func (m ModelConfig) FieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m ModelConfig) Rules(field string) FieldRules {
	if m.Thresholds == nil {
		return nil
	}
	return m.Thresholds[field]
}

func (m ModelConfig) Validate() error {
	for name, weight := range m.Fields {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidConfig)
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("%w: field %q has invalid weight %v", ErrInvalidConfig, name, weight)
		}
	}
	if strings.TrimSpace(m.ScoringVersion) == "" || len(m.ScoringVersion) > maxScoringVersionLength {
		return fmt.Errorf("%w: scoring_version must be 1-%d chars", ErrInvalidConfig, maxScoringVersionLength)
	}
	if _, err := ParseCompletenessMethod(string(m.CompletenessMethod)); err != nil {
		return err
	}
	desc := m.Rules("description")
	if desc.Get(RuleMinLength, 20) >= desc.Get(RuleGoodLength, 100) ||
		desc.Get(RuleGoodLength, 100) >= desc.Get(RuleExcellentLength, 300) {
		return fmt.Errorf("%w: description thresholds must be strictly increasing", ErrInvalidConfig)
	}
	return nil
}

// UIThresholds drive badge colouring in admin views.
type UIThresholds struct {
	Excellent float64
	Good      float64
}

// Config is the full engine configuration, built once by the host.
type Config struct {
	Models       map[ModelKind]ModelConfig
	ValidSources []string
	UI           UIThresholds
}

// Model returns the configuration of kind or ErrUnknownModel.
func (c Config) Model(kind ModelKind) (ModelConfig, error) {
	m, ok := c.Models[kind]
	if !ok {
		return ModelConfig{}, fmt.Errorf("%w: no configuration for %q", ErrUnknownModel, kind)
	}
	return m, nil
}

func (c Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("%w: no models configured", ErrInvalidConfig)
	}
	for kind, m := range c.Models {
		if !kind.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownModel, kind)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model %s: %w", kind, err)
		}
	}
	if len(c.ValidSources) == 0 {
		return fmt.Errorf("%w: valid_sources is empty", ErrInvalidConfig)
	}
	if c.UI.Good > c.UI.Excellent {
		return fmt.Errorf("%w: ui good threshold above excellent", ErrInvalidConfig)
	}
	return nil
}

// SourceAllowed reports whether source is one of the configured sources.
func (c Config) SourceAllowed(source string) bool {
	for _, s := range c.ValidSources {
		if s == source {
			return true
		}
	}
	return false
}

func DefaultValidSources() []string {
	return []string{"user", "ai", "admin", "system"}
}

func DefaultUIThresholds() UIThresholds {
	return UIThresholds{Excellent: 0.90, Good: 0.70}
}

// DefaultProductsConfig weights verification fields above basic listing data.
func DefaultProductsConfig() ModelConfig {
	return ModelConfig{
		Fields: map[string]float64{
			"technical_specifications": 0.25,
			"testing_standard":         0.20,
			"certifying_organization":  0.15,
			"numeric_rating":           0.10,
			"title":                    0.08,
			"description":              0.08,
			"manufacturer":             0.05,
			"model_number":             0.03,
			"price":                    0.03,
			"currency":                 0.01,
			"image":                    0.01,
			"alt_text":                 0.01,
		},
		ScoringVersion:     "v2.0",
		Normalize:          true,
		CompletenessMethod: CompletenessBinary,
		Thresholds: map[string]FieldRules{
			"description": {RuleMinLength: 20, RuleGoodLength: 100, RuleExcellentLength: 300},
			"alt_text":    {RuleMinLength: 5, RuleGoodLength: 20},
			"price":       {RuleMinValue: 0.01},
		},
		ValidCurrencies:        []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY", "CHF", "SEK", "NOK", "DKK"},
		AllowedImageExtensions: []string{"jpg", "jpeg", "png", "gif", "webp"},
	}
}

func DefaultConfig() Config {
	return Config{
		Models:       map[ModelKind]ModelConfig{ModelProducts: DefaultProductsConfig()},
		ValidSources: DefaultValidSources(),
		UI:           DefaultUIThresholds(),
	}
}
