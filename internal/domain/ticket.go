package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnconfirmed     TicketStatus = "unconfirmed"
	TicketStatusConfirmed       TicketStatus = "confirmed"
	TicketStatusPendingApproval TicketStatus = "pending_approval"
	TicketStatusRejected        TicketStatus = "rejected"
	TicketStatusCompleted       TicketStatus = "completed"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusUnconfirmed,
	TicketStatusConfirmed,
	TicketStatusPendingApproval,
	TicketStatusRejected,
	TicketStatusCompleted,
}

var ticketStatusLabels = map[TicketStatus]string{
	TicketStatusUnconfirmed:     "未確認",
	TicketStatusConfirmed:       "確認済み",
	TicketStatusPendingApproval: "社内申請中",
	TicketStatusRejected:        "差し戻し",
	TicketStatusCompleted:       "完了",
}

// Valid reports whether s is one of the five workflow states.
func (s TicketStatus) Valid() bool {
	_, ok := ticketStatusLabels[s]
	return ok
}

// Label returns the display label, or the raw value for unknown statuses.
func (s TicketStatus) Label() string {
	if label, ok := ticketStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// TicketType categorizes the customer request.
type TicketType string

const (
	TicketTypeNegotiation TicketType = "negotiation"
	TicketTypeApproval    TicketType = "approval"
	TicketTypeOther       TicketType = "other"
)

var ticketTypeLabels = map[TicketType]string{
	TicketTypeNegotiation: "相対",
	TicketTypeApproval:    "稟議",
	TicketTypeOther:       "その他",
}

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	_, ok := ticketTypeLabels[t]
	return ok
}

// Label returns the display label, or the raw value for unknown types.
func (t TicketType) Label() string {
	if label, ok := ticketTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Ticket is the aggregate for a tracked customer request.
type Ticket struct {
	ID                   string
	Type                 TicketType
	CustomerName         string
	Description          string
	Deadline             time.Time
	AssignedPartnerID    string
	AssignedPartnerEmail string
	CreatedBy            string
	Status               TicketStatus
	Comment              *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

// TicketPatch carries a partial content edit. Nil fields are left untouched.
type TicketPatch struct {
	Type         *TicketType
	CustomerName *string
	Description  *string
	Deadline     *time.Time
	Status       *TicketStatus
	Comment      *string
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Type == nil && p.CustomerName == nil && p.Description == nil &&
		p.Deadline == nil && p.Status == nil && p.Comment == nil
}

// List filter sentinels accepted in addition to literal values.
const (
	StatusFilterAll                = "all"
	StatusFilterAllExceptCompleted = "all_except_completed"
	TypeFilterAll                  = "all"
	AssigneeFilterAll              = "all"
)

// TicketFilter narrows a ticket listing after role scoping.
type TicketFilter struct {
	// Status is a literal status, "all" or "all_except_completed" (the default when empty).
	Status string
	// Type is a literal type or "all".
	Type string
	// AssignedPartnerID restricts to a single assignee; "all" or empty disables it.
	AssignedPartnerID string
	OverdueOnly       bool
	// Today is the start of the current day used by OverdueOnly.
	Today time.Time
}

// allowedTransitions is the approval workflow graph.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusUnconfirmed:     {TicketStatusConfirmed},
	TicketStatusConfirmed:       {TicketStatusPendingApproval, TicketStatusRejected},
	TicketStatusPendingApproval: {TicketStatusRejected, TicketStatusCompleted},
	TicketStatusRejected:        {TicketStatusConfirmed},
	TicketStatusCompleted:       {},
}

// CanTransition reports whether current may move to next. Re-submitting the
// current status is allowed for every non-terminal state.
func CanTransition(current, next TicketStatus) bool {
	if current == next {
		return current != TicketStatusCompleted
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
