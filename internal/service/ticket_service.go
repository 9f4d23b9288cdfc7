package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/auth"
	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/events"
	"github.com/spec-kit/request-checker/internal/repository"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows and enforces the
// authorization policy before every mutation.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	loc        *time.Location
	strict     bool
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Location   *time.Location
	// StrictTransitions enforces the workflow graph on status updates.
	StrictTransitions bool
	Clock             func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type              domain.TicketType
	CustomerName      string
	Description       string
	Deadline          time.Time
	AssignedPartnerID string
}

// TicketListQuery carries caller supplied list filters.
type TicketListQuery struct {
	Status            string
	Type              string
	AssignedPartnerID string
	OverdueOnly       bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		loc:        deps.Location,
		strict:     deps.StrictTransitions,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTicket creates an unconfirmed ticket assigned to a partner user.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !auth.CanCreate(user) {
		return nil, apperrors.NewForbidden("only sales or admin may create tickets")
	}

	partnerID := strings.TrimSpace(input.AssignedPartnerID)
	if partnerID == "" {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": []string{"assignedPartnerId"}})
	}
	partner, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if partner == nil || partner.Role != domain.UserRolePartner {
		return nil, apperrors.NewValidationError("assignee must be a partner user", map[string]any{"assignedPartnerId": partnerID})
	}

	ticket := &domain.Ticket{
		Type:                 input.Type,
		CustomerName:         strings.TrimSpace(input.CustomerName),
		Description:          strings.TrimSpace(input.Description),
		AssignedPartnerID:    partner.ID,
		AssignedPartnerEmail: partner.Email,
		CreatedBy:            user.ID,
	}
	if !input.Deadline.IsZero() {
		ticket.Deadline = dateutil.StartOfDay(input.Deadline, s.loc)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, user.ID, events.TicketCreatedPayload{
		AssignedPartnerID: ticket.AssignedPartnerID,
		Type:              ticket.Type,
		CustomerName:      ticket.CustomerName,
	}))
	return ticket, nil
}

// GetTicket fetches a ticket visible to user. Tickets outside a partner's
// scope are reported as not found.
func (s *TicketService) GetTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket == nil || !visibleTo(ticket, user) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

func visibleTo(ticket *domain.Ticket, user *domain.User) bool {
	switch user.Role {
	case domain.UserRoleAdmin, domain.UserRoleSales:
		return true
	case domain.UserRolePartner:
		return ticket.AssignedPartnerID == user.ID
	default:
		return false
	}
}

// ListTickets returns tickets visible to user, newest first.
func (s *TicketService) ListTickets(ctx context.Context, user *domain.User, query TicketListQuery) ([]domain.Ticket, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, filter, user)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) buildFilter(query TicketListQuery) (domain.TicketFilter, error) {
	status := strings.TrimSpace(query.Status)
	switch status {
	case "", domain.StatusFilterAll, domain.StatusFilterAllExceptCompleted:
	default:
		if !domain.TicketStatus(status).Valid() {
			return domain.TicketFilter{}, apperrors.NewValidationError("unknown status filter", map[string]any{"status": status})
		}
	}
	ticketType := strings.TrimSpace(query.Type)
	if ticketType != "" && ticketType != domain.TypeFilterAll && !domain.TicketType(ticketType).Valid() {
		return domain.TicketFilter{}, apperrors.NewValidationError("unknown type filter", map[string]any{"type": ticketType})
	}
	return domain.TicketFilter{
		Status:            status,
		Type:              ticketType,
		AssignedPartnerID: strings.TrimSpace(query.AssignedPartnerID),
		OverdueOnly:       query.OverdueOnly,
		Today:             dateutil.StartOfDay(s.now(), s.loc),
	}, nil
}

// UpdateTicket applies a content edit. Status changes go through
// UpdateStatus.
func (s *TicketService) UpdateTicket(ctx context.Context, user *domain.User, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.Status != nil {
		return nil, apperrors.NewValidationError("status is changed through the status endpoint", nil)
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if err := s.normalizePatch(&patch); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if !auth.CanEdit(ticket, user) {
		return nil, apperrors.NewForbidden("not allowed to edit this ticket")
	}

	if err := s.tickets.Update(ctx, ticket.ID, patch); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.reload(ctx, ticket.ID)
}

func (s *TicketService) normalizePatch(patch *domain.TicketPatch) error {
	invalid := []string{}
	if patch.Type != nil && !patch.Type.Valid() {
		invalid = append(invalid, "type")
	}
	if patch.CustomerName != nil {
		trimmed := strings.TrimSpace(*patch.CustomerName)
		if trimmed == "" {
			invalid = append(invalid, "customerName")
		}
		patch.CustomerName = &trimmed
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		if trimmed == "" {
			invalid = append(invalid, "description")
		}
		patch.Description = &trimmed
	}
	if patch.Deadline != nil {
		if patch.Deadline.IsZero() {
			invalid = append(invalid, "deadline")
		} else {
			civil := dateutil.StartOfDay(*patch.Deadline, s.loc)
			patch.Deadline = &civil
		}
	}
	if len(invalid) > 0 {
		return apperrors.NewValidationError("invalid fields", map[string]any{"fields": invalid})
	}
	return nil
}

// UpdateStatus moves a ticket through the workflow on behalf of its
// assigned partner and publishes a status change event.
func (s *TicketService) UpdateStatus(ctx context.Context, user *domain.User, ticketID string, newStatus domain.TicketStatus, comment *string) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	if !auth.CanUpdateStatus(user) {
		return nil, apperrors.NewForbidden("only the assigned partner may update status")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket == nil || !visibleTo(ticket, user) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if s.strict && !domain.CanTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}

	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, ticket.ID, newStatus, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	updated, err := s.reload(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, user.ID, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	}))
	return updated, nil
}

// DeleteTicket permanently removes a ticket the user may edit.
func (s *TicketService) DeleteTicket(ctx context.Context, user *domain.User, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if !auth.CanEdit(ticket, user) {
		return apperrors.NewForbidden("not allowed to delete this ticket")
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticket.ID), zap.String("user_id", user.ID))
	return nil
}

func (s *TicketService) reload(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
