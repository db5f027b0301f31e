package reliability

type Badge string

const (
	BadgeExcellent Badge = "excellent"
	BadgeGood      Badge = "good"
	BadgePoor      Badge = "poor"
)

// BadgeFor classifies a total score against the UI thresholds.
func BadgeFor(score float64, ui UIThresholds) Badge {
	switch {
	case score >= ui.Excellent:
		return BadgeExcellent
	case score >= ui.Good:
		return BadgeGood
	default:
		return BadgePoor
	}
}

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	provisionalSuccessScore = 0.80
	provisionalWarningScore = 0.60
)

// SeverityFor is the alert level shown next to a provisional score.
func SeverityFor(score float64) Severity {
	switch {
	case score >= provisionalSuccessScore:
		return SeveritySuccess
	case score >= provisionalWarningScore:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Trend classifies the change between two consecutive totals.
type Trend string

const (
	TrendImprovement Trend = "improvement"
	TrendDegradation Trend = "degradation"
	TrendNoChange    Trend = "no_change"
)

const trendBand = 0.01

func TrendFor(delta float64) Trend {
	switch {
	case delta > trendBand:
		return TrendImprovement
	case delta < -trendBand:
		return TrendDegradation
	default:
		return TrendNoChange
	}
}
