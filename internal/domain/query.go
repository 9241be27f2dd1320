package domain

import "time"

// QueryStatus enumerates lifecycle states for customer queries.
type QueryStatus string

const (
	QueryStatusOpen     QueryStatus = "OPEN"
	QueryStatusActive   QueryStatus = "ACTIVE"
	QueryStatusResolved QueryStatus = "RESOLVED"
)

// ValidStatus reports whether s is a recognized lifecycle state.
func ValidStatus(s QueryStatus) bool {
	switch s {
	case QueryStatusOpen, QueryStatusActive, QueryStatusResolved:
		return true
	}
	return false
}

// Query is the aggregate for a customer-submitted service query.
// It is created once by the intake path and mutated only through the
// lifecycle and assignment flows; it is never deleted.
type Query struct {
	ID             string
	ReferenceID    string
	AccountNumber  string
	CustomerName   string
	ContactNumber  string
	Description    string
	QueryType      string
	SubmissionDate time.Time
	Status         QueryStatus

	// Assignment group: all set together or all absent.
	AssignedTo     *string
	AssignedToName *string
	AssignedBy     *string
	AssignedAt     *time.Time

	// Resolution group: all set together, only while status is RESOLVED.
	ResolutionMessage *string
	ResolutionDate    *time.Time
	ResolvedBy        *string

	LastUpdated time.Time
	UpdatedBy   string
}

// Assigned reports whether the assignment field group is present.
func (q *Query) Assigned() bool {
	return q.AssignedTo != nil && q.AssignedToName != nil && q.AssignedBy != nil && q.AssignedAt != nil
}

// Resolved reports whether the resolution field group is present.
func (q *Query) Resolved() bool {
	return q.ResolutionMessage != nil && q.ResolutionDate != nil && q.ResolvedBy != nil
}

// Validate checks the structural invariants a stored query must satisfy.
// Documents pushed by the store pass through here before entering the
// snapshot; partially-populated field groups are rejected rather than
// trusted.
func (q *Query) Validate() error {
	if q.ID == "" {
		return ErrInvalidQuery("missing id")
	}
	if !ValidStatus(q.Status) {
		return ErrInvalidQuery("unrecognized status " + string(q.Status))
	}
	if q.SubmissionDate.IsZero() {
		return ErrInvalidQuery("missing submission date")
	}

	assignedFields := 0
	for _, set := range []bool{q.AssignedTo != nil, q.AssignedToName != nil, q.AssignedBy != nil, q.AssignedAt != nil} {
		if set {
			assignedFields++
		}
	}
	if assignedFields != 0 && assignedFields != 4 {
		return ErrInvalidQuery("partial assignment field group")
	}

	resolvedFields := 0
	for _, set := range []bool{q.ResolutionMessage != nil, q.ResolutionDate != nil, q.ResolvedBy != nil} {
		if set {
			resolvedFields++
		}
	}
	if resolvedFields != 0 && resolvedFields != 3 {
		return ErrInvalidQuery("partial resolution field group")
	}
	if (q.Status == QueryStatusResolved) != (resolvedFields == 3) {
		return ErrInvalidQuery("resolution fields inconsistent with status")
	}
	if q.ResolutionDate != nil && TruncateToDay(*q.ResolutionDate).Before(TruncateToDay(q.SubmissionDate)) {
		return ErrInvalidQuery("resolution date precedes submission date")
	}
	return nil
}

// ErrInvalidQuery marks a stored document that violates query invariants.
type ErrInvalidQuery string

func (e ErrInvalidQuery) Error() string {
	return "invalid query document: " + string(e)
}

// TruncateToDay drops the time-of-day component in t's location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
