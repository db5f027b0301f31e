package reliability

import (
	"fmt"
	"strings"
)

// ModelKind names a scored model type. The set is closed; see ParseModelKind.
type ModelKind string

const (
	ModelProducts ModelKind = "Products"
	ModelArticles ModelKind = "Articles"
	ModelUsers    ModelKind = "Users"
)

var knownModelKinds = []ModelKind{ModelProducts, ModelArticles, ModelUsers}

// KnownModelKinds lists every supported kind in declaration order.
func KnownModelKinds() []ModelKind {
	out := make([]ModelKind, len(knownModelKinds))
	copy(out, knownModelKinds)
	return out
}

// ParseModelKind matches name case-insensitively against the known kinds.
func ParseModelKind(name string) (ModelKind, error) {
	trimmed := strings.TrimSpace(name)
	for _, kind := range knownModelKinds {
		if strings.EqualFold(trimmed, string(kind)) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

func (k ModelKind) Valid() bool {
	for _, kind := range knownModelKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (k ModelKind) String() string { return string(k) }

// EntityRef is the polymorphic (model, foreign_key) key shared by the
// summary, field score and audit log stores.
type EntityRef struct {
	Kind ModelKind
	ID   string
}

func NewEntityRef(kind ModelKind, id string) EntityRef {
	return EntityRef{Kind: kind, ID: strings.TrimSpace(id)}
}

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// LockKey is the name used for per-entity advisory and in-process locks.
func (r EntityRef) LockKey() string {
	return "reliability:" + r.String()
}

// Validate reports precondition violations: unknown kind or missing id.
func (r EntityRef) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownModel, r.Kind)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: entity %s has no primary key", ErrPrecondition, r.Kind)
	}
	if len(r.ID) > maxForeignKeyLength {
		return fmt.Errorf("%w: entity id longer than %d chars", ErrPrecondition, maxForeignKeyLength)
	}
	return nil
}

// Scorable is an external entity snapshot the engine can read field values from.
type Scorable interface {
	Ref() EntityRef
	// Value returns the raw field value and whether the field exists at all.
	Value(field string) (any, bool)
}

// Record is a map-backed Scorable, used for snapshots loaded from files and
// for hosts that already hold entities as generic maps.
type Record struct {
	Kind   ModelKind
	ID     string
	Fields map[string]any
}

var _ Scorable = Record{}

func (r Record) Ref() EntityRef {
	return NewEntityRef(r.Kind, r.ID)
}

func (r Record) Value(field string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[field]
	return v, ok
}
