package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, id string, patch domain.TicketPatch) error
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, comment *string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter domain.TicketFilter, requester *domain.User) ([]domain.Ticket, error)
	ListIncomplete(ctx context.Context) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	db  DBTX
	loc *time.Location
}

// NewTicketRepository instantiates repository. loc is the zone in which
// stored deadline dates are interpreted.
func NewTicketRepository(db DBTX, loc *time.Location) TicketRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &ticketRepository{db: db, loc: loc}
}

const ticketColumns = `id::text, type, customer_name, description, deadline, assigned_partner_id, assigned_partner_email,
               created_by, status, comment, created_at, updated_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := validateNewTicket(ticket); err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (type, customer_name, description, deadline, assigned_partner_id, assigned_partner_email, created_by, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id::text, created_at, updated_at`
	ticket.Status = domain.TicketStatusUnconfirmed
	ticket.CompletedAt = nil
	return r.db.QueryRow(ctx, query,
		ticket.Type,
		ticket.CustomerName,
		ticket.Description,
		ticket.Deadline,
		ticket.AssignedPartnerID,
		ticket.AssignedPartnerEmail,
		ticket.CreatedBy,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func validateNewTicket(ticket *domain.Ticket) error {
	if ticket == nil {
		return apperrors.NewValidationError("ticket required", nil)
	}
	missing := []string{}
	if ticket.Type == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(ticket.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if ticket.Description == "" {
		missing = append(missing, "description")
	}
	if ticket.Deadline.IsZero() {
		missing = append(missing, "deadline")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !ticket.Type.Valid() {
		return apperrors.NewValidationError("unknown ticket type", map[string]any{"type": ticket.Type})
	}
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}

	sets := []string{}
	args := []any{}
	if patch.Type != nil {
		args = append(args, *patch.Type)
		sets = append(sets, fmt.Sprintf("type=$%d", len(args)))
	}
	if patch.CustomerName != nil {
		args = append(args, *patch.CustomerName)
		sets = append(sets, fmt.Sprintf("customer_name=$%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description=$%d", len(args)))
	}
	if patch.Deadline != nil {
		args = append(args, *patch.Deadline)
		sets = append(sets, fmt.Sprintf("deadline=$%d", len(args)))
	}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		idx := len(args)
		// completed_at on the right-hand side is the pre-update value, so a
		// ticket that is already completed keeps its original stamp.
		sets = append(sets,
			fmt.Sprintf("status=$%d", idx),
			fmt.Sprintf(`completed_at=CASE WHEN $%d::text = 'completed'
                THEN COALESCE(CASE WHEN status = 'completed' THEN completed_at END, NOW())
                ELSE NULL END`, idx))
	}
	if patch.Comment != nil {
		args = append(args, *patch.Comment)
		sets = append(sets, fmt.Sprintf("comment=$%d", len(args)))
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, comment *string) error {
	return r.Update(ctx, id, domain.TicketPatch{Status: &status, Comment: comment})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := r.scanTicket(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter domain.TicketFilter, requester *domain.User) ([]domain.Ticket, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("requesting user required")
	}

	clauses := []string{"1=1"}
	args := []any{}

	// Role scoping comes first and ignores the filter.
	switch requester.Role {
	case domain.UserRolePartner:
		args = append(args, requester.ID)
		clauses = append(clauses, fmt.Sprintf("assigned_partner_id=$%d", len(args)))
	case domain.UserRoleSales, domain.UserRoleAdmin:
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	switch filter.Status {
	case "", domain.StatusFilterAllExceptCompleted:
		clauses = append(clauses, "status <> 'completed'")
	case domain.StatusFilterAll:
	default:
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	if filter.Type != "" && filter.Type != domain.TypeFilterAll {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}

	if filter.AssignedPartnerID != "" && filter.AssignedPartnerID != domain.AssigneeFilterAll {
		args = append(args, filter.AssignedPartnerID)
		clauses = append(clauses, fmt.Sprintf("assigned_partner_id=$%d", len(args)))
	}

	if filter.OverdueOnly {
		today := filter.Today
		if today.IsZero() {
			today = dateutil.StartOfDay(time.Now(), r.loc)
		}
		args = append(args, today)
		clauses = append(clauses, fmt.Sprintf("deadline < $%d", len(args)), "status <> 'completed'")
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTickets(rows)
}

func (r *ticketRepository) ListIncomplete(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status <> 'completed' ORDER BY deadline ASC, created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTickets(rows)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return nil
}

func (r *ticketRepository) scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Type,
		&ticket.CustomerName,
		&ticket.Description,
		&ticket.Deadline,
		&ticket.AssignedPartnerID,
		&ticket.AssignedPartnerEmail,
		&ticket.CreatedBy,
		&ticket.Status,
		&ticket.Comment,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	ticket.Deadline = dateutil.CivilDate(ticket.Deadline, r.loc)
	return &ticket, nil
}

func (r *ticketRepository) scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := r.scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
