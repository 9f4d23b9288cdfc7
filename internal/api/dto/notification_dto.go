package dto

import (
	"time"

	"github.com/spec-kit/request-checker/internal/domain"
)

// StatusUpdateNotifyRequest is the body of POST /notify/statusUpdate.
type StatusUpdateNotifyRequest struct {
	TicketID  string  `json:"ticketId"`
	NewStatus string  `json:"newStatus"`
	UpdatedBy string  `json:"updatedBy"`
	Comment   *string `json:"comment"`
}

// InternalResponse is the envelope used by the scheduler-facing endpoints.
type InternalResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	SentCount *int             `json:"sentCount,omitempty"`
	Results   []ReminderResult `json:"results,omitempty"`
}

// ReminderResult reports one recipient of a reminder run.
type ReminderResult struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	TicketCount int    `json:"ticketCount"`
	Success     bool   `json:"success"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NotificationLogResponse is the admin view of a log entry.
type NotificationLogResponse struct {
	ID             string                    `json:"id"`
	Type           domain.NotificationType   `json:"type"`
	RecipientID    string                    `json:"recipientId"`
	RecipientEmail string                    `json:"recipientEmail"`
	TicketIDs      []string                  `json:"ticketIds"`
	SentAt         time.Time                 `json:"sentAt"`
	SentDate       *string                   `json:"sentDate,omitempty"`
	Status         domain.NotificationStatus `json:"status"`
	Error          *string                   `json:"error,omitempty"`
	Metadata       map[string]any            `json:"metadata,omitempty"`
}
