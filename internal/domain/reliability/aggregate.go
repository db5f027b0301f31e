package reliability

// Aggregate is the combined result of a set of field scores.
type Aggregate struct {
	TotalScore          float64
	CompletenessPercent float64
}

// AggregateScores combines field scores.
//
// TotalScore is always the weighted mean Σ(score·weight)/Σ(weight), capped at
// 1.0 when normalize is set. Only CompletenessPercent depends on method:
// binary counts fields with a positive score, weighted reuses the weighted mean.
func AggregateScores(scores []FieldScore, method CompletenessMethod, normalize bool) Aggregate {
	if len(scores) == 0 {
		return Aggregate{}
	}

	var weightedSum, totalWeight float64
	complete := 0
	for _, fs := range scores {
		weightedSum += fs.Score * fs.Weight
		totalWeight += fs.Weight
		if fs.Score > 0 {
			complete++
		}
	}

	var ratio float64
	if totalWeight > 0 {
		ratio = weightedSum / totalWeight
	}

	total := ratio
	if normalize && total > 1.0 {
		total = 1.0
	}

	var completeness float64
	switch method {
	case CompletenessWeighted:
		completeness = ratio * 100
	default:
		completeness = float64(complete) / float64(len(scores)) * 100
	}

	return Aggregate{
		TotalScore:          roundTo(total, 3),
		CompletenessPercent: roundTo(completeness, 2),
	}
}
