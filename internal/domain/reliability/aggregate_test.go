package reliability

import "testing"

func TestAggregateScores_WeightedMean(t *testing.T) {
	scores := []FieldScore{
		{Field: "a", Score: 1.0, Weight: 2, MaxScore: 1},
		{Field: "b", Score: 0.0, Weight: 1, MaxScore: 1},
	}
	got := AggregateScores(scores, CompletenessBinary, true)
	if got.TotalScore != 0.667 {
		t.Fatalf("TotalScore = %v, want 0.667", got.TotalScore)
	}
	if got.CompletenessPercent != 50 {
		t.Fatalf("CompletenessPercent = %v, want 50", got.CompletenessPercent)
	}
}

func TestAggregateScores_BinaryCompleteness(t *testing.T) {
	scores := []FieldScore{
		{Field: "a", Score: 1.0, Weight: 0.1},
		{Field: "b", Score: 0.3, Weight: 0.1},
		{Field: "c", Score: 0.5, Weight: 0.1},
		{Field: "d", Score: 0.0, Weight: 0.1},
	}
	got := AggregateScores(scores, CompletenessBinary, true)
	if got.CompletenessPercent != 75.00 {
		t.Fatalf("CompletenessPercent = %v, want 75.00", got.CompletenessPercent)
	}
}

func TestAggregateScores_MethodOnlyAffectsCompleteness(t *testing.T) {
	scores := []FieldScore{
		{Field: "a", Score: 1.0, Weight: 0.25},
		{Field: "b", Score: 0.5, Weight: 0.25},
		{Field: "c", Score: 0.0, Weight: 0.5},
	}
	binary := AggregateScores(scores, CompletenessBinary, true)
	weighted := AggregateScores(scores, CompletenessWeighted, true)

	if binary.TotalScore != weighted.TotalScore {
		t.Fatalf("TotalScore differs by method: %v vs %v", binary.TotalScore, weighted.TotalScore)
	}
	if binary.TotalScore != 0.375 {
		t.Fatalf("TotalScore = %v, want 0.375", binary.TotalScore)
	}
	if binary.CompletenessPercent != 66.67 {
		t.Fatalf("binary CompletenessPercent = %v, want 66.67", binary.CompletenessPercent)
	}
	if weighted.CompletenessPercent != 37.5 {
		t.Fatalf("weighted CompletenessPercent = %v, want 37.5", weighted.CompletenessPercent)
	}
}

func TestAggregateScores_ZeroWeightSafety(t *testing.T) {
	if got := AggregateScores(nil, CompletenessWeighted, true); got != (Aggregate{}) {
		t.Fatalf("AggregateScores(nil) = %#v, want zero", got)
	}

	zero := []FieldScore{{Field: "a", Score: 1, Weight: 0}, {Field: "b", Score: 0, Weight: 0}}
	got := AggregateScores(zero, CompletenessWeighted, true)
	if got.TotalScore != 0 || got.CompletenessPercent != 0 {
		t.Fatalf("AggregateScores(zero weights) = %#v, want zero", got)
	}
}

func TestEndToEnd_PartialProduct(t *testing.T) {
	m := DefaultProductsConfig()
	m.Fields = map[string]float64{
		"title":                    0.08,
		"description":              0.08,
		"price":                    0.03,
		"currency":                 0.01,
		"technical_specifications": 0,
		"testing_standard":         0,
	}
	s := NewScorer(m, nil)

	entity := Record{Kind: ModelProducts, ID: "1", Fields: map[string]any{
		"title":       "Widget",
		"description": "",
		"price":       19.99,
		"currency":    "USD",
	}}
	scores := s.ScoreFields(entity)

	byField := map[string]FieldScore{}
	for _, fs := range scores {
		byField[fs.Field] = fs
	}
	if byField["description"].Score != 0 {
		t.Fatalf("description = %v, want 0", byField["description"].Score)
	}
	for _, f := range []string{"title", "price", "currency"} {
		if byField[f].Score != 1 {
			t.Fatalf("%s = %v, want 1", f, byField[f].Score)
		}
	}

	agg := AggregateScores(scores, m.CompletenessMethod, m.Normalize)
	if agg.TotalScore != 0.600 {
		t.Fatalf("TotalScore = %v, want 0.600", agg.TotalScore)
	}
}

func TestEvaluate_BadgeAndSeverity(t *testing.T) {
	m := ModelConfig{
		Fields:         map[string]float64{"title": 1, "manufacturer": 1},
		ScoringVersion: "v1",
		Normalize:      true,
	}
	s := NewScorer(m, nil)

	full := Evaluate(s, Record{Kind: ModelProducts, ID: "1", Fields: map[string]any{"title": "a", "manufacturer": "b"}}, DefaultUIThresholds())
	if full.Badge != BadgeExcellent || full.Severity != SeveritySuccess {
		t.Fatalf("full = %s/%s, want excellent/success", full.Badge, full.Severity)
	}
	if len(full.Contributions) != 2 || full.Contributions[0].Weighted != 1 {
		t.Fatalf("Contributions = %#v", full.Contributions)
	}

	half := Evaluate(s, Record{Kind: ModelProducts, ID: "1", Fields: map[string]any{"title": "a"}}, DefaultUIThresholds())
	if half.Aggregate.TotalScore != 0.5 || half.Badge != BadgePoor || half.Severity != SeverityInfo {
		t.Fatalf("half = %v %s/%s", half.Aggregate.TotalScore, half.Badge, half.Severity)
	}
}

func TestSeverityAndTrendBands(t *testing.T) {
	if SeverityFor(0.80) != SeveritySuccess || SeverityFor(0.60) != SeverityWarning || SeverityFor(0.59) != SeverityInfo {
		t.Fatalf("SeverityFor bands wrong")
	}
	if BadgeFor(0.70, DefaultUIThresholds()) != BadgeGood {
		t.Fatalf("BadgeFor(0.70) != good")
	}
	if TrendFor(0.02) != TrendImprovement || TrendFor(-0.02) != TrendDegradation || TrendFor(0.01) != TrendNoChange {
		t.Fatalf("TrendFor bands wrong")
	}
}
