package reliability

import (
	"encoding/json"
	"fmt"
	"sort"
)

type fieldScoreDoc struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	MaxScore float64 `json:"max_score"`
	Notes    string  `json:"notes"`
}

// MarshalFieldScores encodes scores as the field_scores_json snapshot: an
// object keyed by field name.
func MarshalFieldScores(scores []FieldScore) (string, error) {
	doc := make(map[string]fieldScoreDoc, len(scores))
	for _, fs := range scores {
		doc[fs.Field] = fieldScoreDoc{
			Score:    fs.Score,
			Weight:   fs.Weight,
			MaxScore: fs.MaxScore,
			Notes:    fs.Notes,
		}
	}
	raw, err := encodeJSON(doc)
	if err != nil {
		return "", fmt.Errorf("encode field scores: %w", err)
	}
	return string(raw), nil
}

// UnmarshalFieldScores decodes a field_scores_json snapshot, sorted by field.
func UnmarshalFieldScores(raw string) ([]FieldScore, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var doc map[string]fieldScoreDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode field scores: %w", err)
	}

	out := make([]FieldScore, 0, len(doc))
	for field, d := range doc {
		out = append(out, FieldScore{
			Field:    field,
			Score:    d.Score,
			Weight:   d.Weight,
			MaxScore: d.MaxScore,
			Notes:    d.Notes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}
