package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-checker/internal/api/dto"
	"github.com/spec-kit/request-checker/internal/auth"
	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/service"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// TicketsHandler serves the ticket API for all three roles.
type TicketsHandler struct {
	service *service.TicketService
	loc     *time.Location
	now     func() time.Time
}

// NewTicketsHandler constructs handler. loc interprets deadline dates.
func NewTicketsHandler(ticketService *service.TicketService, loc *time.Location) *TicketsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketsHandler{service: ticketService, loc: loc, now: time.Now}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var deadline time.Time
	if strings.TrimSpace(req.Deadline) != "" {
		if deadline, err = h.parseDate(req.Deadline); err != nil {
			return err
		}
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), user, service.TicketCreateInput{
		Type:              req.Type,
		CustomerName:      req.CustomerName,
		Description:       req.Description,
		Deadline:          deadline,
		AssignedPartnerID: req.AssignedPartnerID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": h.ticketResponse(ticket, user)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	overdueOnly, _ := strconv.ParseBool(c.Query("overdueOnly", "false"))
	tickets, err := h.service.ListTickets(c.UserContext(), user, service.TicketListQuery{
		Status:            c.Query("status"),
		Type:              c.Query("type"),
		AssignedPartnerID: c.Query("assignedPartnerId"),
		OverdueOnly:       overdueOnly,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketResponse(&tickets[i], user))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket, user)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch := domain.TicketPatch{
		Type:         req.Type,
		CustomerName: req.CustomerName,
		Description:  req.Description,
		Comment:      req.Comment,
	}
	if req.Deadline != nil {
		deadline, err := h.parseDate(*req.Deadline)
		if err != nil {
			return err
		}
		patch.Deadline = &deadline
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), user, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket, user)})
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": []string{"status"}})
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), user, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket, user)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TicketsHandler) parseDate(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	if t, err := time.ParseInLocation(dateutil.DateLayout, val, h.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.NewValidationError("deadline must be YYYY-MM-DD", map[string]any{"deadline": val})
}

func (h *TicketsHandler) ticketResponse(t *domain.Ticket, viewer *domain.User) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                   t.ID,
		Type:                 t.Type,
		TypeLabel:            t.Type.Label(),
		CustomerName:         t.CustomerName,
		Description:          t.Description,
		Deadline:             dateutil.FormatDate(t.Deadline),
		Overdue:              t.Status != domain.TicketStatusCompleted && dateutil.IsOverdue(t.Deadline, h.now(), h.loc),
		AssignedPartnerID:    t.AssignedPartnerID,
		AssignedPartnerEmail: t.AssignedPartnerEmail,
		CreatedBy:            t.CreatedBy,
		Status:               t.Status,
		StatusLabel:          t.Status.Label(),
		Comment:              t.Comment,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		CompletedAt:          t.CompletedAt,
		CanEdit:              auth.CanEdit(t, viewer),
	}
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}
