package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-checker/internal/api/dto"
	"github.com/spec-kit/request-checker/internal/service"
)

// DashboardHandler serves admin summaries.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats GET /dashboard.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.dashboard.Stats(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		TotalCount:          stats.TotalCount,
		OverdueCount:        stats.OverdueCount,
		StatusCounts:        stats.StatusCounts,
		AverageLeadTimeDays: stats.AverageLeadTimeDays,
	}})
}

// Notifications GET /notifications.
func (h *DashboardHandler) Notifications(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.dashboard.RecentNotifications(c.UserContext(), user, c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	items := make([]dto.NotificationLogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NotificationLogResponse{
			ID:             e.ID,
			Type:           e.Type,
			RecipientID:    e.RecipientID,
			RecipientEmail: e.RecipientEmail,
			TicketIDs:      e.TicketIDs,
			SentAt:         e.SentAt,
			SentDate:       e.SentDate,
			Status:         e.Status,
			Error:          e.Error,
			Metadata:       e.Metadata,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
