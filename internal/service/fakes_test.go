package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/notification"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

var tokyo = mustLocation("Asia/Tokyo")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, tokyo)
}

type fakeTicketRepo struct {
	mu         sync.Mutex
	tickets    map[string]*domain.Ticket
	seq        int
	now        func() time.Time
	lastFilter domain.TicketFilter
}

func newFakeTicketRepo(now func() time.Time) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, now: now}
}

func (r *fakeTicketRepo) put(t domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := t
	r.tickets[t.ID] = &copied
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.Type == "" || ticket.CustomerName == "" || ticket.Description == "" || ticket.Deadline.IsZero() {
		return apperrors.NewValidationError("missing required fields", nil)
	}
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.Status = domain.TicketStatusUnconfirmed
	ticket.CreatedAt = r.now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, id string, patch domain.TicketPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.CustomerName != nil {
		t.CustomerName = *patch.CustomerName
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Deadline != nil {
		t.Deadline = *patch.Deadline
	}
	if patch.Status != nil {
		now := r.now()
		switch {
		case *patch.Status != domain.TicketStatusCompleted:
			t.CompletedAt = nil
		case t.Status != domain.TicketStatusCompleted:
			t.CompletedAt = &now
		}
		t.Status = *patch.Status
	}
	if patch.Comment != nil {
		c := *patch.Comment
		t.Comment = &c
	}
	t.UpdatedAt = r.now()
	return nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, comment *string) error {
	return r.Update(ctx, id, domain.TicketPatch{Status: &status, Comment: comment})
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter domain.TicketFilter, requester *domain.User) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	result := []domain.Ticket{}
	for _, t := range r.sorted() {
		if requester.Role == domain.UserRolePartner && t.AssignedPartnerID != requester.ID {
			continue
		}
		switch filter.Status {
		case "", domain.StatusFilterAllExceptCompleted:
			if t.Status == domain.TicketStatusCompleted {
				continue
			}
		case domain.StatusFilterAll:
		default:
			if string(t.Status) != filter.Status {
				continue
			}
		}
		if filter.AssignedPartnerID != "" && filter.AssignedPartnerID != domain.AssigneeFilterAll && t.AssignedPartnerID != filter.AssignedPartnerID {
			continue
		}
		if filter.OverdueOnly && (t.Status == domain.TicketStatusCompleted || !t.Deadline.Before(filter.Today)) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (r *fakeTicketRepo) ListIncomplete(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []domain.Ticket{}
	for _, t := range r.sorted() {
		if t.Status != domain.TicketStatusCompleted {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Deadline.Before(result[j].Deadline) })
	return result, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return apperrors.NewNotFound("ticket", nil)
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) sorted() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]domain.User
	getErr    error
	createHit bool
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) CreateIfAbsent(_ context.Context, user *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createHit = true
	if _, ok := r.users[user.ID]; ok {
		return false, nil
	}
	r.users[user.ID] = *user
	return true, nil
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []domain.User{}
	for _, u := range r.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DisplayName < result[j].DisplayName })
	return result, nil
}

type fakeLogRepo struct {
	mu        sync.Mutex
	entries   []domain.NotificationLog
	claims    map[string]bool
	claimErr  error
	appendErr error
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{claims: map[string]bool{}}
}

func (r *fakeLogRepo) Append(_ context.Context, entry *domain.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	entry.ID = fmt.Sprintf("log-%d", len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLogRepo) ClaimReminderSlot(_ context.Context, recipientID, sentDate string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return false, r.claimErr
	}
	key := recipientID + "|" + sentDate
	if r.claims[key] {
		return false, nil
	}
	r.claims[key] = true
	return true, nil
}

func (r *fakeLogRepo) ListRecent(_ context.Context, limit int) ([]domain.NotificationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.NotificationLog{}, r.entries...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type sentMail struct {
	To      string
	Content notification.Content
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: map[string]error{}}
}

func (s *fakeSender) Send(_ context.Context, to string, content notification.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[to]; ok {
		return apperrors.NewSendFailed(err)
	}
	s.sent = append(s.sent, sentMail{To: to, Content: content})
	return nil
}

type fakeLocker struct {
	held     map[string]bool
	err      error
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

var errStoreDown = errors.New("store down")

func overdueTicket(id, partnerID string, deadline time.Time) domain.Ticket {
	return domain.Ticket{
		ID:                   id,
		Type:                 domain.TicketTypeApproval,
		CustomerName:         "customer " + id,
		Description:          "desc " + id,
		Deadline:             dateutil.CivilDate(deadline, tokyo),
		AssignedPartnerID:    partnerID,
		AssignedPartnerEmail: partnerID + "@partner.example",
		CreatedBy:            "sales-1",
		Status:               domain.TicketStatusConfirmed,
	}
}
