package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/api/dto"
	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/service"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// ReminderRunner runs the daily reminder job.
type ReminderRunner interface {
	Run(ctx context.Context) (service.ReminderReport, error)
}

// StatusNotifier reports a status change to the ticket's creator.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, req service.StatusChangeRequest) (service.StatusChangeResult, error)
}

// InternalHandler serves the scheduler-facing endpoints. They answer with
// the {success, message|error} envelope instead of the API error shape.
type InternalHandler struct {
	reminders ReminderRunner
	notifier  StatusNotifier
	logger    *zap.Logger
}

// NewInternalHandler constructs handler.
func NewInternalHandler(reminders ReminderRunner, notifier StatusNotifier, logger *zap.Logger) *InternalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InternalHandler{reminders: reminders, notifier: notifier, logger: logger}
}

// SendReminders POST /cron/sendReminders.
func (h *InternalHandler) SendReminders(c *fiber.Ctx) error {
	report, err := h.reminders.Run(c.UserContext())
	if err != nil {
		h.logger.Error("send reminders failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		if apperrors.HasCode(err, apperrors.CodeAlreadyProcessed) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(dto.InternalResponse{Success: false, Error: err.Error()})
	}

	if report.OverdueCount == 0 {
		zero := 0
		return c.JSON(dto.InternalResponse{Success: true, Message: "No overdue tickets found", SentCount: &zero})
	}

	results := make([]dto.ReminderResult, 0, len(report.Results))
	for _, r := range report.Results {
		results = append(results, dto.ReminderResult{
			UserID:      r.UserID,
			Email:       r.Email,
			TicketCount: r.TicketCount,
			Success:     r.Success,
			Skipped:     r.Skipped,
			Error:       r.Error,
		})
	}
	sent := report.Succeeded
	return c.JSON(dto.InternalResponse{
		Success:   true,
		Message:   fmt.Sprintf("Sent %d reminder emails, %d failed", report.Succeeded, report.Failed),
		SentCount: &sent,
		Results:   results,
	})
}

// RemindersHint GET /cron/sendReminders.
func (h *InternalHandler) RemindersHint(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":  "Use POST to trigger reminder emails",
		"endpoint": c.Path(),
	})
}

// NotifyStatusUpdate POST /notify/statusUpdate.
func (h *InternalHandler) NotifyStatusUpdate(c *fiber.Ctx) error {
	var req dto.StatusUpdateNotifyRequest
	if err := c.BodyParser(&req); err != nil ||
		strings.TrimSpace(req.TicketID) == "" || strings.TrimSpace(req.NewStatus) == "" || strings.TrimSpace(req.UpdatedBy) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.InternalResponse{Success: false, Error: "Missing required fields"})
	}

	result, err := h.notifier.NotifyStatusChange(c.UserContext(), service.StatusChangeRequest{
		TicketID:  req.TicketID,
		NewStatus: domain.TicketStatus(req.NewStatus),
		UpdatedBy: req.UpdatedBy,
		Comment:   req.Comment,
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.InternalResponse{Success: false, Error: "Ticket not found"})
		}
		h.logger.Error("status update notification failed", zap.String("ticket_id", req.TicketID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.InternalResponse{Success: false, Error: err.Error()})
	}
	return c.JSON(dto.InternalResponse{Success: result.Success, Message: result.Message, Error: result.Error})
}
