package dto

import (
	"time"

	"github.com/spec-kit/request-checker/internal/domain"
)

// CreateTicketRequest payload. Deadline is a YYYY-MM-DD date.
type CreateTicketRequest struct {
	Type              domain.TicketType `json:"type"`
	CustomerName      string            `json:"customerName"`
	Description       string            `json:"description"`
	Deadline          string            `json:"deadline"`
	AssignedPartnerID string            `json:"assignedPartnerId"`
}

// UpdateTicketRequest carries a partial content edit.
type UpdateTicketRequest struct {
	Type         *domain.TicketType `json:"type"`
	CustomerName *string            `json:"customerName"`
	Description  *string            `json:"description"`
	Deadline     *string            `json:"deadline"`
	Comment      *string            `json:"comment"`
}

// UpdateStatusRequest payload for the partner workflow action.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment *string             `json:"comment"`
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID                   string              `json:"id"`
	Type                 domain.TicketType   `json:"type"`
	TypeLabel            string              `json:"typeLabel"`
	CustomerName         string              `json:"customerName"`
	Description          string              `json:"description"`
	Deadline             string              `json:"deadline"`
	Overdue              bool                `json:"overdue"`
	AssignedPartnerID    string              `json:"assignedPartnerId"`
	AssignedPartnerEmail string              `json:"assignedPartnerEmail"`
	CreatedBy            string              `json:"createdBy"`
	Status               domain.TicketStatus `json:"status"`
	StatusLabel          string              `json:"statusLabel"`
	Comment              *string             `json:"comment,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
	CompletedAt          *time.Time          `json:"completedAt,omitempty"`
	CanEdit              bool                `json:"canEdit"`
}

// DashboardResponse summarizes tickets for admins.
type DashboardResponse struct {
	TotalCount          int                         `json:"totalCount"`
	OverdueCount        int                         `json:"overdueCount"`
	StatusCounts        map[domain.TicketStatus]int `json:"statusCounts"`
	AverageLeadTimeDays float64                     `json:"averageLeadTimeDays"`
}
