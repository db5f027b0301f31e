package reliability

import (
	"context"
	"errors"

	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/ports"
)

// VerifyResult compares a stored checksum with a fresh computation.
type VerifyResult struct {
	LogID    string
	Ref      domainreliability.EntityRef
	Created  string
	Expected string
	Computed string
	Valid    bool
	Err      error
}

// VerifyEntry recomputes the checksum of e.
func VerifyEntry(e domainreliability.AuditLogEntry) VerifyResult {
	result := VerifyResult{
		LogID:    e.ID,
		Ref:      e.Ref,
		Created:  e.Created,
		Expected: e.ChecksumSHA256,
	}
	computed, err := domainreliability.ComputeChecksum(e.ChecksumPayload())
	if err != nil {
		result.Err = err
		return result
	}
	result.Computed = computed
	result.Valid = domainreliability.ValidChecksumFormat(e.ChecksumSHA256) &&
		domainreliability.ChecksumsEqual(computed, e.ChecksumSHA256)
	return result
}

type VerificationReport struct {
	Verified int
	Failed   int
	Failures []VerifyResult
}

// VerifyLogs checks the newest limit entries of kind, or of one entity when
// id is set. limit <= 0 checks every entry.
func (s *Service) VerifyLogs(ctx context.Context, kind domainreliability.ModelKind, id string, limit int) (VerificationReport, error) {
	if ctx == nil {
		return VerificationReport{}, errors.New("context is required")
	}
	if s.logReader == nil {
		return VerificationReport{}, errReadersRequired
	}

	entries, err := s.logReader.ListByModel(ctx, ports.AuditLogFilter{
		Kind:        kind,
		ID:          id,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return VerificationReport{}, err
	}

	var report VerificationReport
	for _, e := range entries {
		result := VerifyEntry(e)
		if result.Valid {
			report.Verified++
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, result)
	}
	return report, nil
}
