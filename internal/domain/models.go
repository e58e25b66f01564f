// Package domain defines the core records exchanged between the dual-write
// service, the discrepancy verifier, and their collaborators.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entity is an opaque domain record owned by the primary store. The engine
// never interprets Fields beyond the comparison keys configured on the
// verifier; everything else rides along untouched.
type Entity struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// NewEntity creates an Entity with its own copy of the given fields.
func NewEntity(id string, fields map[string]any) Entity {
	e := Entity{ID: id, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// Clone returns a deep-enough copy for snapshot semantics: the field map is
// copied, field values are treated as immutable.
func (e Entity) Clone() Entity {
	return NewEntity(e.ID, e.Fields)
}

// ShadowWriteResult is the outcome of one dual-write call. The canonical
// entity always reflects the primary store; the Shadow* fields describe the
// mirrored attempt, which never affects the caller's success.
type ShadowWriteResult struct {
	Entity        Entity
	ShadowSuccess bool
	ShadowErr     error
	FaultID       string
	ShadowElapsed time.Duration
}

// DiscrepancyKind classifies one divergence between primary and shadow.
type DiscrepancyKind string

const (
	MissingInShadow  DiscrepancyKind = "missing_in_shadow"
	MissingInPrimary DiscrepancyKind = "missing_in_primary"
	DataMismatch     DiscrepancyKind = "data_mismatch"
)

// Discrepancy records a single detected divergence for one entity ID.
// CheckedFields and MismatchedFields are set for DataMismatch only.
type Discrepancy struct {
	EntityID         string          `json:"entity_id"`
	Kind             DiscrepancyKind `json:"kind"`
	CheckedFields    []string        `json:"checked_fields,omitempty"`
	MismatchedFields []string        `json:"mismatched_fields,omitempty"`
}

// VerificationResult summarizes one bounded reconciliation run. It is
// returned and logged, never persisted by the engine itself.
type VerificationResult struct {
	RunID           string        `json:"run_id"`
	EntityType      string        `json:"entity_type"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	EntitiesChecked int           `json:"entities_checked"`
	Discrepancies   []Discrepancy `json:"discrepancies"`
	TimedOut        bool          `json:"timed_out"`
	Error           string        `json:"error,omitempty"`
}

// DiscrepanciesFound is a convenience for logs and reports.
func (r VerificationResult) DiscrepanciesFound() int {
	return len(r.Discrepancies)
}

// NewRunID generates a verification run identifier unique without any
// central counter: a UTC timestamp plus a random suffix.
func NewRunID() string {
	return fmt.Sprintf("%s-%s",
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
	)
}
