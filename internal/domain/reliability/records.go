package reliability

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	maxForeignKeyLength     = 64
	maxScoringVersionLength = 32
	maxSourceLength         = 20
	maxServiceLength        = 100
	maxCompletenessPercent  = 100.0
)

const (
	DefaultSource  = "system"
	DefaultMessage = "Reliability scores recalculated"
)

// Summary is the current score of one entity.
type Summary struct {
	ID                  string
	Ref                 EntityRef
	TotalScore          float64
	CompletenessPercent float64
	FieldScoresJSON     string
	ScoringVersion      string
	LastSource          string
	LastCalculated      string
	UpdatedByUserID     *string
	UpdatedByService    *string
	Created             string
	Modified            string
}

// FieldScores decodes the summary's snapshot.
func (s Summary) FieldScores() ([]FieldScore, error) {
	return UnmarshalFieldScores(s.FieldScoresJSON)
}

func (s Summary) Validate(cfg Config) error {
	v := newValidator("reliability summary")
	checkRef(v, s.Ref)
	v.check(inRange(s.TotalScore, 0, MaxFieldScore), "total_score", "must be between 0 and 1")
	v.check(inRange(s.CompletenessPercent, 0, maxCompletenessPercent), "completeness_percent", "must be between 0 and 100")
	v.check(validJSON(s.FieldScoresJSON), "field_scores_json", "must be valid JSON")
	v.check(strings.TrimSpace(s.ScoringVersion) != "", "scoring_version", "is required")
	v.check(len(s.ScoringVersion) <= maxScoringVersionLength, "scoring_version", "is too long")
	checkSource(v, cfg, "last_source", s.LastSource)
	v.check(validTimestamp(s.LastCalculated), "last_calculated", "must be an RFC3339 timestamp")
	checkService(v, "updated_by_service", s.UpdatedByService)
	return v.err()
}

// AuditLogEntry is one immutable row of the recalculation history.
type AuditLogEntry struct {
	ID                  string
	Ref                 EntityRef
	FromTotalScore      *float64
	ToTotalScore        float64
	FromFieldScoresJSON *string
	ToFieldScoresJSON   string
	Source              string
	ActorUserID         *string
	ActorService        *string
	Message             string
	Created             string
	ChecksumSHA256      string
}

// ChecksumPayload returns the columns the entry's checksum covers.
func (e AuditLogEntry) ChecksumPayload() ChecksumPayload {
	to := e.ToFieldScoresJSON
	return ChecksumPayload{
		Model:               string(e.Ref.Kind),
		ForeignKey:          e.Ref.ID,
		FromTotalScore:      e.FromTotalScore,
		ToTotalScore:        e.ToTotalScore,
		FromFieldScoresJSON: e.FromFieldScoresJSON,
		ToFieldScoresJSON:   &to,
		Source:              e.Source,
		ActorUserID:         e.ActorUserID,
		ActorService:        e.ActorService,
		Created:             e.Created,
	}
}

// Delta is to minus from, or nil for the first entry of a chain.
func (e AuditLogEntry) Delta() *float64 {
	if e.FromTotalScore == nil {
		return nil
	}
	d := roundTo(e.ToTotalScore-*e.FromTotalScore, 3)
	return &d
}

func (e AuditLogEntry) Validate(cfg Config) error {
	v := newValidator("reliability audit log entry")
	checkRef(v, e.Ref)
	if e.FromTotalScore != nil {
		v.check(inRange(*e.FromTotalScore, 0, MaxFieldScore), "from_total_score", "must be between 0 and 1")
	}
	v.check(inRange(e.ToTotalScore, 0, MaxFieldScore), "to_total_score", "must be between 0 and 1")
	if e.FromFieldScoresJSON != nil {
		v.check(validJSON(*e.FromFieldScoresJSON), "from_field_scores_json", "must be valid JSON")
	}
	v.check(validJSON(e.ToFieldScoresJSON), "to_field_scores_json", "must be valid JSON")
	checkSource(v, cfg, "source", e.Source)
	checkService(v, "actor_service", e.ActorService)
	v.check(validTimestamp(e.Created), "created", "must be an RFC3339 timestamp")
	v.check(ValidChecksumFormat(e.ChecksumSHA256), "checksum_sha256", "must be 64 lowercase hex chars")
	return v.err()
}

func checkRef(v *validator, ref EntityRef) {
	v.check(ref.Kind.Valid(), "model", "unknown model")
	v.check(strings.TrimSpace(ref.ID) != "", "foreign_key", "is required")
	v.check(len(ref.ID) <= maxForeignKeyLength, "foreign_key", "is too long")
}

func checkSource(v *validator, cfg Config, column, source string) {
	v.check(strings.TrimSpace(source) != "", column, "is required")
	v.check(len(source) <= maxSourceLength, column, "is too long")
	v.check(cfg.SourceAllowed(source), column, "must be one of: "+strings.Join(cfg.ValidSources, ", "))
}

func checkService(v *validator, column string, service *string) {
	if service == nil {
		return
	}
	v.check(len(*service) <= maxServiceLength, column, "is too long")
}

func inRange(f, lo, hi float64) bool {
	return f >= lo && f <= hi
}

func validJSON(s string) bool {
	return json.Valid([]byte(s))
}

func validTimestamp(s string) bool {
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// timestampLayout is RFC3339 with fixed-width nanoseconds so stored values
// sort lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t the way records store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
