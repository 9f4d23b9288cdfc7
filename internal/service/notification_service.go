package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/events"
	"github.com/spec-kit/request-checker/internal/notification"
	"github.com/spec-kit/request-checker/internal/observability"
	"github.com/spec-kit/request-checker/internal/repository"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// Messages reported by NotifyStatusChange.
const (
	MsgUpdaterIsCreator  = "No notification needed - updater is the creator"
	MsgCreatorNotFound   = "Creator user not found"
	fallbackUpdaterLabel = "担当者"
)

// StatusChangeRequest identifies a status update to report to the ticket's
// creator.
type StatusChangeRequest struct {
	TicketID  string
	NewStatus domain.TicketStatus
	UpdatedBy string
	Comment   *string
}

// StatusChangeResult reports a degraded outcome through Success=false
// instead of an error. Error is set only when no send was attempted.
type StatusChangeResult struct {
	Success bool
	Message string
	Error   string
}

// NotificationDependencies bundles collaborators for the notifier.
type NotificationDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	LogRepo    repository.NotificationLogRepository
	Sender     notification.Sender
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
}

// NotificationService tells ticket creators about status changes.
type NotificationService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	logs       repository.NotificationLogRepository
	sender     notification.Sender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		logs:       deps.LogRepo,
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Clock,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("actor_id", event.ActorID))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	result, err := n.NotifyStatusChange(ctx, StatusChangeRequest{
		TicketID:  event.TicketID,
		NewStatus: payload.NewStatus,
		UpdatedBy: event.ActorID,
		Comment:   payload.Comment,
	})
	if err != nil {
		return err
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.Bool("success", result.Success),
		zap.String("message", result.Message),
		zap.String("error", result.Error))
	return nil
}

// NotifyStatusChange emails the ticket's creator about a status update and
// records exactly one log entry whenever a send is attempted.
func (n *NotificationService) NotifyStatusChange(ctx context.Context, req StatusChangeRequest) (StatusChangeResult, error) {
	ticket, err := n.tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		return StatusChangeResult{}, apperrors.MapError(err)
	}
	if ticket == nil {
		return StatusChangeResult{}, apperrors.NewNotFound("ticket", map[string]any{"id": req.TicketID})
	}

	if req.UpdatedBy == ticket.CreatedBy {
		return StatusChangeResult{Success: true, Message: MsgUpdaterIsCreator}, nil
	}

	creator, err := n.users.GetByID(ctx, ticket.CreatedBy)
	if err != nil {
		return StatusChangeResult{}, apperrors.MapError(err)
	}
	if creator == nil {
		n.logger.Warn("status change creator missing", zap.String("ticket_id", ticket.ID), zap.String("creator_id", ticket.CreatedBy))
		return StatusChangeResult{Success: false, Error: MsgCreatorNotFound}, nil
	}

	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}
	sendErr := n.send(ctx, ticket, creator, req.NewStatus, n.updaterName(ctx, req.UpdatedBy), comment)

	entry := &domain.NotificationLog{
		Type:           domain.NotificationTypeStatusUpdate,
		RecipientID:    creator.ID,
		RecipientEmail: creator.Email,
		TicketIDs:      []string{ticket.ID},
		SentAt:         n.now(),
		Status:         domain.NotificationStatusSuccess,
		Metadata: map[string]any{
			"newStatus": string(req.NewStatus),
			"updatedBy": req.UpdatedBy,
		},
	}
	result := StatusChangeResult{Success: true, Message: "Notification sent to " + creator.Email}
	outcome := "success"
	if sendErr != nil {
		msg := errorMessage(sendErr)
		entry.Status = domain.NotificationStatusFailed
		entry.Error = &msg
		result = StatusChangeResult{Success: false, Message: "Failed to send notification: " + msg}
		outcome = "failed"
		n.logger.Warn("status change send failed", zap.String("ticket_id", ticket.ID), zap.Error(sendErr))
	}
	n.metrics.RecordNotification(string(domain.NotificationTypeStatusUpdate), outcome)

	if err := n.logs.Append(ctx, entry); err != nil {
		return result, apperrors.MapError(err)
	}
	return result, nil
}

func (n *NotificationService) send(ctx context.Context, ticket *domain.Ticket, creator *domain.User, status domain.TicketStatus, updaterName, comment string) error {
	content, err := notification.StatusChangeNotice(ticket, status, updaterName, comment)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, creator.Email, content)
}

// updaterName never fails; lookup errors fall back to the generic label.
func (n *NotificationService) updaterName(ctx context.Context, userID string) string {
	updater, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Warn("updater lookup failed", zap.String("user_id", userID), zap.Error(err))
		return fallbackUpdaterLabel
	}
	if updater == nil || strings.TrimSpace(updater.DisplayName) == "" {
		return fallbackUpdaterLabel
	}
	return updater.DisplayName
}
