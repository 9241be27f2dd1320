package domain

import "time"

// NotificationType identifies the notification event kinds this engine emits.
type NotificationType string

const (
	NotificationQueryAssignment NotificationType = "QUERY_ASSIGNMENT"
)

// AssignmentNotificationEvent is the write-once event published to the
// notification sink when a query is assigned.
type AssignmentNotificationEvent struct {
	ID               string           `json:"id"`
	Type             NotificationType `json:"type"`
	RecipientID      string           `json:"recipient_id"`
	SenderID         string           `json:"sender_id"`
	SenderName       string           `json:"sender_name"`
	QueryID          string           `json:"query_id"`
	QueryTitle       string           `json:"query_title"`
	QueryDescription string           `json:"query_description"`
	Read             bool             `json:"read"`
	CreatedAt        time.Time        `json:"created_at"`
}
