package reliability

// Contribution is one field's share of the weighted total.
type Contribution struct {
	FieldScore
	Weighted float64
}

// Evaluation is a scored entity that has not been persisted.
type Evaluation struct {
	Ref            EntityRef
	ScoringVersion string
	Fields         []FieldScore
	Contributions  []Contribution
	Aggregate      Aggregate
	Badge          Badge
	Severity       Severity
}

// Evaluate scores and aggregates entity without touching storage.
func Evaluate(s *Scorer, entity Scorable, ui UIThresholds) Evaluation {
	m := s.Config()
	fields := s.ScoreFields(entity)
	agg := AggregateScores(fields, m.CompletenessMethod, m.Normalize)

	contributions := make([]Contribution, 0, len(fields))
	for _, fs := range fields {
		contributions = append(contributions, Contribution{
			FieldScore: fs,
			Weighted:   roundTo(fs.Score*fs.Weight, 4),
		})
	}

	var ref EntityRef
	if entity != nil {
		ref = entity.Ref()
	}
	return Evaluation{
		Ref:            ref,
		ScoringVersion: m.ScoringVersion,
		Fields:         fields,
		Contributions:  contributions,
		Aggregate:      agg,
		Badge:          BadgeFor(agg.TotalScore, ui),
		Severity:       SeverityFor(agg.TotalScore),
	}
}
