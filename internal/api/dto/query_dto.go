package dto

import (
	"time"

	"github.com/spec-kit/query-engine/internal/domain"
	"github.com/spec-kit/query-engine/internal/engine"
)

// CreateQueryRequest is the intake payload.
type CreateQueryRequest struct {
	AccountNumber string `json:"account_number"`
	CustomerName  string `json:"customer_name"`
	ContactNumber string `json:"contact_number"`
	Description   string `json:"description"`
	QueryType     string `json:"query_type"`
}

// AssignRequest names the staff member to route a query to.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ChangeStatusRequest carries the target lifecycle state.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// ResolveRequest carries the resolution message for a commit.
type ResolveRequest struct {
	Message string `json:"message"`
}

// QueryResponse is the full query document returned to staff.
type QueryResponse struct {
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

// PendingResolutionResponse is the intent returned by propose.
type PendingResolutionResponse struct {
	QueryID     string    `json:"query_id"`
	ReferenceID string    `json:"reference_id"`
	ProposedBy  string    `json:"proposed_by"`
	ProposedAt  time.Time `json:"proposed_at"`
}

// MetricsBucketResponse is one day of the trailing metrics series.
// AvgResolutionDays serializes as null for days without resolutions.
type MetricsBucketResponse struct {
	Date              string   `json:"date"`
	QueryCount        int      `json:"query_count"`
	AvgResolutionDays *float64 `json:"avg_resolution_days"`
}

// FromQuery maps a domain query to its response shape.
func FromQuery(q *domain.Query) QueryResponse {
	return QueryResponse{
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

// FromMetrics maps the metrics series to its response shape.
func FromMetrics(series []engine.MetricsBucket) []MetricsBucketResponse {
	result := make([]MetricsBucketResponse, 0, len(series))
	for _, bucket := range series {
		result = append(result, MetricsBucketResponse{
			Date:              bucket.Date.Format("2006-01-02"),
			QueryCount:        bucket.QueryCount,
			AvgResolutionDays: bucket.AvgResolutionDays,
		})
	}
	return result
}
