package store

import (
	"time"

	"github.com/spec-kit/query-engine/internal/domain"
)

// queryDocument is the wire shape pushed over the change channel. Stored
// documents are loosely typed at the boundary; fromDocument re-validates
// the invariant field groups before anything enters the snapshot.
type queryDocument struct {
	ID                string     `json:"id"`
	ReferenceID       string     `json:"reference_id"`
	AccountNumber     string     `json:"account_number"`
	CustomerName      string     `json:"customer_name"`
	ContactNumber     string     `json:"contact_number"`
	Description       string     `json:"description"`
	QueryType         string     `json:"query_type"`
	SubmissionDate    time.Time  `json:"submission_date"`
	Status            string     `json:"status"`
	AssignedTo        *string    `json:"assigned_to,omitempty"`
	AssignedToName    *string    `json:"assigned_to_name,omitempty"`
	AssignedBy        *string    `json:"assigned_by,omitempty"`
	AssignedAt        *time.Time `json:"assigned_at,omitempty"`
	ResolutionMessage *string    `json:"resolution_message,omitempty"`
	ResolutionDate    *time.Time `json:"resolution_date,omitempty"`
	ResolvedBy        *string    `json:"resolved_by,omitempty"`
	LastUpdated       time.Time  `json:"last_updated"`
	UpdatedBy         string     `json:"updated_by"`
}

type changeEnvelope struct {
	Kind  ChangeKind    `json:"kind"`
	Query queryDocument `json:"query"`
}

func toDocument(q *domain.Query) queryDocument {
	return queryDocument{
		ID:                q.ID,
		ReferenceID:       q.ReferenceID,
		AccountNumber:     q.AccountNumber,
		CustomerName:      q.CustomerName,
		ContactNumber:     q.ContactNumber,
		Description:       q.Description,
		QueryType:         q.QueryType,
		SubmissionDate:    q.SubmissionDate,
		Status:            string(q.Status),
		AssignedTo:        q.AssignedTo,
		AssignedToName:    q.AssignedToName,
		AssignedBy:        q.AssignedBy,
		AssignedAt:        q.AssignedAt,
		ResolutionMessage: q.ResolutionMessage,
		ResolutionDate:    q.ResolutionDate,
		ResolvedBy:        q.ResolvedBy,
		LastUpdated:       q.LastUpdated,
		UpdatedBy:         q.UpdatedBy,
	}
}

func fromDocument(doc queryDocument) (*domain.Query, error) {
	query := &domain.Query{
		ID:                doc.ID,
		ReferenceID:       doc.ReferenceID,
		AccountNumber:     doc.AccountNumber,
		CustomerName:      doc.CustomerName,
		ContactNumber:     doc.ContactNumber,
		Description:       doc.Description,
		QueryType:         doc.QueryType,
		SubmissionDate:    doc.SubmissionDate,
		Status:            domain.QueryStatus(doc.Status),
		AssignedTo:        doc.AssignedTo,
		AssignedToName:    doc.AssignedToName,
		AssignedBy:        doc.AssignedBy,
		AssignedAt:        doc.AssignedAt,
		ResolutionMessage: doc.ResolutionMessage,
		ResolutionDate:    doc.ResolutionDate,
		ResolvedBy:        doc.ResolvedBy,
		LastUpdated:       doc.LastUpdated,
		UpdatedBy:         doc.UpdatedBy,
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return query, nil
}
