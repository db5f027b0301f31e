package reliability

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrPrecondition  = errors.New("reliability precondition failed")
	ErrUnknownModel  = errors.New("unknown reliability model")
	ErrInvalidConfig = errors.New("invalid reliability config")
	ErrValidation    = errors.New("reliability record validation failed")
	ErrChecksum      = errors.New("reliability checksum computation failed")
)

// ValidationError collects per-column messages for one record.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Record string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid " + e.Record + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type validator struct {
	record string
	fields map[string]string
}

func newValidator(record string) *validator {
	return &validator{record: record, fields: map[string]string{}}
}

func (v *validator) check(ok bool, field string, msg string) {
	if ok {
		return
	}
	if _, exists := v.fields[field]; exists {
		return
	}
	v.fields[field] = msg
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Record: v.record, Fields: v.fields}
}
