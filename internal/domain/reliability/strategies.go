package reliability

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Strategy scores one field value. Implementations must not fail: missing or
// malformed input is reported as a low score with an explanatory note.
type Strategy interface {
	Score(value any, rules FieldRules) (score float64, notes string)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(value any, rules FieldRules) (float64, string)

func (f StrategyFunc) Score(value any, rules FieldRules) (float64, string) {
	return f(value, rules)
}

// PresenceStrategy gives full credit to any non-empty string.
type PresenceStrategy struct {
	Label string
}

func (s PresenceStrategy) Score(value any, _ FieldRules) (float64, string) {
	if str, ok := asString(value); ok && !isEmpty(str) {
		return 1.0, s.Label + " present and valid"
	}
	return 0.0, s.Label + " missing or invalid"
}

// LengthBandStrategy scores text length across min, good and excellent bands.
// Below min the score is 0; between min and good it rises from 0.5 to 0.75;
// between good and excellent from 0.75 to 1.0.
type LengthBandStrategy struct {
	Label     string
	StripHTML bool
}

func (s LengthBandStrategy) Score(value any, rules FieldRules) (float64, string) {
	if isEmpty(value) {
		return 0.0, s.Label + " missing"
	}
	text, ok := asString(value)
	if !ok {
		return 0.0, s.Label + " is not text"
	}
	if s.StripHTML {
		text = stripTags(text)
	}

	length := float64(textLength(text))
	minLen := rules.Get(RuleMinLength, 20)
	goodLen := rules.Get(RuleGoodLength, 100)
	excellentLen := rules.Get(RuleExcellentLength, 300)

	switch {
	case length < minLen:
		return 0.0, fmt.Sprintf("%s too short (%d chars, min %d)", s.Label, int(length), int(minLen))
	case length < goodLen:
		return 0.5 + (length-minLen)/(goodLen-minLen)*0.25, fmt.Sprintf("%s adequate (%d chars)", s.Label, int(length))
	case length < excellentLen:
		return 0.75 + (length-goodLen)/(excellentLen-goodLen)*0.25, fmt.Sprintf("%s good (%d chars)", s.Label, int(length))
	default:
		return 1.0, fmt.Sprintf("%s excellent (%d chars)", s.Label, int(length))
	}
}

// StepLengthStrategy scores short texts such as alt text: at least good gets
// 1.0, at least min gets 0.7, anything shorter 0.3.
type StepLengthStrategy struct {
	Label string
}

func (s StepLengthStrategy) Score(value any, rules FieldRules) (float64, string) {
	if isEmpty(value) {
		return 0.0, s.Label + " missing"
	}
	text, ok := asString(value)
	if !ok {
		return 0.3, s.Label + " is not text"
	}

	length := textLength(text)
	minLen := int(rules.Get(RuleMinLength, 5))
	goodLen := int(rules.Get(RuleGoodLength, 20))

	switch {
	case length >= goodLen:
		return 1.0, fmt.Sprintf("%s descriptive (%d chars)", s.Label, length)
	case length >= minLen:
		return 0.7, fmt.Sprintf("%s adequate (%d chars)", s.Label, length)
	default:
		return 0.3, fmt.Sprintf("%s too short (%d chars)", s.Label, length)
	}
}

// MinValueStrategy requires a numeric value of at least min_value.
type MinValueStrategy struct {
	Label string
}

func (s MinValueStrategy) Score(value any, rules FieldRules) (float64, string) {
	minValue := rules.Get(RuleMinValue, 0.01)
	if f, ok := toFloat(value); ok && f >= minValue {
		return 1.0, "Valid " + strings.ToLower(s.Label) + " specified"
	}
	if isEmpty(value) {
		return 0.0, s.Label + " missing"
	}
	return 0.0, "Invalid " + strings.ToLower(s.Label) + " value"
}

// RatingStrategy gives full credit to ratings in [0.1, 100] and partial credit
// to positive values outside that range.
type RatingStrategy struct{}

func (RatingStrategy) Score(value any, _ FieldRules) (float64, string) {
	f, ok := toFloat(value)
	if !ok || f <= 0 {
		return 0.0, "CRITICAL: Numeric performance rating missing - no quantified performance data"
	}
	if f >= 0.1 && f <= 100 {
		return 1.0, "Valid numeric performance rating provided"
	}
	return 0.5, "Numeric rating present but value seems unrealistic"
}

// CurrencyStrategy accepts codes from a configured set, case-insensitively.
type CurrencyStrategy struct {
	valid map[string]struct{}
}

func NewCurrencyStrategy(codes []string) CurrencyStrategy {
	valid := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		valid[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	return CurrencyStrategy{valid: valid}
}

func (s CurrencyStrategy) Score(value any, _ FieldRules) (float64, string) {
	if isEmpty(value) {
		return 0.0, "Currency missing"
	}
	code, ok := asString(value)
	if ok {
		if _, found := s.valid[strings.ToUpper(code)]; found {
			return 1.0, "Valid currency code"
		}
	}
	return 0.0, "Invalid currency code"
}

// ImageStrategy checks the file extension of an image path or URL.
type ImageStrategy struct {
	allowed map[string]struct{}
}

func NewImageStrategy(extensions []string) ImageStrategy {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))] = struct{}{}
	}
	return ImageStrategy{allowed: allowed}
}

func (s ImageStrategy) Score(value any, _ FieldRules) (float64, string) {
	if isEmpty(value) {
		return 0.0, "Image missing"
	}
	if p, ok := asString(value); ok {
		if _, found := s.allowed[imageExtension(p)]; found {
			return 1.0, "Valid image URL/path"
		}
	}
	return 0.5, "Image path present but format may be invalid"
}

func imageExtension(p string) string {
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// JSONDocumentStrategy expects a JSON object or array with at least one entry.
type JSONDocumentStrategy struct{}

func (JSONDocumentStrategy) Score(value any, _ FieldRules) (float64, string) {
	if isEmpty(value) {
		return 0.0, "CRITICAL: Technical specifications missing - product cannot be verified"
	}
	raw, ok := asString(value)
	if !ok {
		return 0.5, "Technical specifications provided but not in JSON format"
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		switch d := decoded.(type) {
		case map[string]any:
			if len(d) > 0 {
				return 1.0, "Valid technical specifications JSON provided"
			}
		case []any:
			if len(d) > 0 {
				return 1.0, "Valid technical specifications JSON provided"
			}
		}
	}
	return 0.3, "Technical specifications present but invalid JSON format"
}

var testingStandardPattern = regexp.MustCompile(`^[A-Z]{2,8}[-\s]?\d+`)

var standardBodies = []string{"ISO", "ANSI", "IEC", "IEEE"}

// TestingStandardStrategy recognises designations such as "IEC 60335" or "UL-94".
type TestingStandardStrategy struct{}

func (TestingStandardStrategy) Score(value any, _ FieldRules) (float64, string) {
	s, ok := asString(value)
	if !ok || isEmpty(s) {
		return 0.0, "CRITICAL: Testing standard missing - product authenticity questionable"
	}
	if testingStandardPattern.MatchString(s) {
		return 1.0, "Valid testing standard format detected"
	}
	for _, body := range standardBodies {
		if strings.Contains(s, body) {
			return 1.0, "Valid testing standard format detected"
		}
	}
	return 0.2, "Testing standard present but format not recognized"
}

var knownCertifiers = []string{"UL", "FCC", "CE", "ETL", "CSA", "TUV", "SGS", "DNV", "BV"}

// CertifierStrategy looks for a known certifying organization, ignoring case.
type CertifierStrategy struct{}

func (CertifierStrategy) Score(value any, _ FieldRules) (float64, string) {
	s, ok := asString(value)
	if !ok || isEmpty(s) {
		return 0.0, "CRITICAL: Certifying organization missing - no third-party verification"
	}
	upper := strings.ToUpper(s)
	for _, org := range knownCertifiers {
		if strings.Contains(upper, org) {
			return 1.0, "Recognized certifying organization detected"
		}
	}
	return 0.3, "Certifying organization provided but not recognized"
}

// GenericStrategy is used for fields without a registered strategy.
type GenericStrategy struct{}

func (GenericStrategy) Score(value any, _ FieldRules) (float64, string) {
	if isEmpty(value) {
		return 0.0, "Field is empty"
	}
	return 1.0, "Field has value"
}
