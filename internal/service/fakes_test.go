package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	clock   time.Time
	tickets map[string]*domain.Ticket
	techs   *fakeTechnicianRepo
	updates int
}

func newFakeTicketRepo(techs *fakeTechnicianRepo) *fakeTicketRepo {
	return &fakeTicketRepo{
		clock:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		tickets: map[string]*domain.Ticket{},
		techs:   techs,
	}
}

func (r *fakeTicketRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *fakeTicketRepo) put(t domain.Ticket) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		r.seq++
		t.ID = fmt.Sprintf("ticket-%d", r.seq)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.tick()
	}
	t.UpdatedAt = t.CreatedAt
	r.tickets[t.ID] = &t
	return r.copy(&t)
}

func (r *fakeTicketRepo) copy(t *domain.Ticket) *domain.Ticket {
	out := *t
	if t.Assignment != nil {
		a := *t.Assignment
		out.Assignment = &a
		if r.techs != nil {
			if tech, ok := r.techs.techs[a.TechnicianID]; ok {
				out.Assignee = tech.Contact()
			}
		}
	}
	return &out
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	stored := r.put(*ticket)
	*ticket = *stored
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.updates++
	ticket.UpdatedAt = r.tick()
	stored := *ticket
	stored.Assignee = nil
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.copy(t), nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.sorted() {
		if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
			continue
		}
		if v := filter.Technician; v != nil {
			if t.Assignment == nil {
				continue
			}
			if t.Assignment.UserID != v.UserID && (v.TechnicianID == "" || t.Assignment.TechnicianID != v.TechnicianID) {
				continue
			}
		}
		if filter.Assigned != nil && t.IsAssigned() != *filter.Assigned {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, *r.copy(t))
	}
	return out, len(out), nil
}

func (r *fakeTicketRepo) ListUnassignedIDs(_ context.Context, from, to *time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, t := range r.sorted() {
		if t.IsAssigned() {
			continue
		}
		if from != nil && t.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && t.CreatedAt.After(*to) {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (r *fakeTicketRepo) CountOpenByTechnician(_ context.Context, ids []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, t := range r.tickets {
		if t.Assignment == nil || !t.Status.Open() {
			continue
		}
		for _, id := range ids {
			if id == t.Assignment.TechnicianID {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (r *fakeTicketRepo) AssignIfUnassigned(_ context.Context, ticketID string, assignment domain.Assignment) (*domain.Ticket, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok || t.Assignment != nil {
		return nil, false, nil
	}
	t.Assignment = &assignment
	t.Status = domain.TicketStatusInProgress
	t.UpdatedAt = r.tick()
	r.updates++
	return r.copy(t), true, nil
}

func (r *fakeTicketRepo) sorted() []*domain.Ticket {
	list := make([]*domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeTechnicianRepo struct {
	mu    sync.Mutex
	seq   int64
	techs map[string]*domain.Technician
}

func newFakeTechnicianRepo() *fakeTechnicianRepo {
	return &fakeTechnicianRepo{techs: map[string]*domain.Technician{}}
}

// add stores a technician; linkedUser "" leaves it unlinked.
func (r *fakeTechnicianRepo) add(id string, active bool, linkedUser string) *domain.Technician {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	tech := &domain.Technician{
		ID:       id,
		Seq:      r.seq,
		Name:     "Tech " + id,
		Email:    id + "@helpdesk.test",
		IsActive: active,
	}
	if linkedUser != "" {
		u := linkedUser
		tech.LinkedUserID = &u
	}
	r.techs[id] = tech
	out := *tech
	return &out
}

func (r *fakeTechnicianRepo) Create(_ context.Context, tech *domain.Technician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if tech.ID == "" {
		tech.ID = fmt.Sprintf("tech-%d", r.seq)
	}
	tech.Seq = r.seq
	stored := *tech
	r.techs[tech.ID] = &stored
	return nil
}

func (r *fakeTechnicianRepo) Update(_ context.Context, tech *domain.Technician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.techs[tech.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored := *tech
	stored.LinkedUserID = existing.LinkedUserID
	r.techs[tech.ID] = &stored
	return nil
}

func (r *fakeTechnicianRepo) GetByID(_ context.Context, id string) (*domain.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *t
	return &out, nil
}

func (r *fakeTechnicianRepo) GetByLinkedUser(_ context.Context, userID string) (*domain.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.techs {
		if t.LinkedUserID != nil && *t.LinkedUserID == userID {
			out := *t
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTechnicianRepo) List(_ context.Context, _ repository.TechnicianFilter) ([]domain.Technician, error) {
	return r.ordered(func(*domain.Technician) bool { return true }), nil
}

func (r *fakeTechnicianRepo) ListAssignable(_ context.Context) ([]domain.Technician, error) {
	return r.ordered(func(t *domain.Technician) bool { return t.Assignable() }), nil
}

func (r *fakeTechnicianRepo) LinkUser(_ context.Context, technicianID, userID string) (*domain.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[technicianID]
	if !ok || t.LinkedUserID != nil {
		return nil, pgx.ErrNoRows
	}
	u := userID
	t.LinkedUserID = &u
	out := *t
	return &out, nil
}

func (r *fakeTechnicianRepo) ordered(keep func(*domain.Technician) bool) []domain.Technician {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Technician
	for _, t := range r.techs {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

type fakeCategoryRepo struct {
	categories    map[string]*domain.Category
	subcategories map[string]*domain.Subcategory
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		categories: map[string]*domain.Category{
			"hardware": {ID: "hardware", Name: "Hardware", IsActive: true},
			"software": {ID: "software", Name: "Software", IsActive: true},
			"legacy":   {ID: "legacy", Name: "Legacy", IsActive: false},
		},
		subcategories: map[string]*domain.Subcategory{
			"printers": {ID: "printers", CategoryID: "hardware", Name: "Printers", IsActive: true},
			"email":    {ID: "email", CategoryID: "software", Name: "Email", IsActive: true},
		},
	}
}

func (r *fakeCategoryRepo) Create(_ context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = fmt.Sprintf("category-%d", len(r.categories)+1)
	}
	stored := *c
	r.categories[c.ID] = &stored
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (r *fakeCategoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range r.categories {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCategoryRepo) CreateSubcategory(_ context.Context, sub *domain.Subcategory) error {
	if sub.ID == "" {
		sub.ID = fmt.Sprintf("subcategory-%d", len(r.subcategories)+1)
	}
	stored := *sub
	r.subcategories[sub.ID] = &stored
	return nil
}

func (r *fakeCategoryRepo) GetSubcategory(_ context.Context, id string) (*domain.Subcategory, error) {
	s, ok := r.subcategories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *s
	return &out, nil
}

type fakeMessageRepo struct {
	tickets  *fakeTicketRepo
	messages []domain.TicketMessage
}

func (r *fakeMessageRepo) Append(_ context.Context, msg *domain.TicketMessage, status *domain.TicketStatus) (time.Time, error) {
	r.tickets.mu.Lock()
	defer r.tickets.mu.Unlock()
	t, ok := r.tickets.tickets[msg.TicketID]
	if !ok {
		return time.Time{}, pgx.ErrNoRows
	}
	now := r.tickets.tick()
	msg.ID = fmt.Sprintf("msg-%d", len(r.messages)+1)
	msg.CreatedAt = now
	if status != nil {
		t.Status = *status
		s := *status
		msg.StatusSnapshot = &s
	}
	t.UpdatedAt = now
	r.messages = append(r.messages, *msg)
	return now, nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	var out []domain.TicketMessage
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
	err     error
}

func (r *fakeHistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *h)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range r.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) ofType(kind domain.TicketChangeType) []domain.TicketHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range r.entries {
		if h.ChangeType == kind {
			out = append(out, h)
		}
	}
	return out
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	existing, ok := r.users[u.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Name, existing.Email, existing.PasswordHash = u.Name, u.Email, u.PasswordHash
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == domain.NormalizeEmail(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeInbox struct {
	mu    sync.Mutex
	items map[string][]domain.Notification
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{items: map[string][]domain.Notification{}}
}

func (f *fakeInbox) Push(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[n.UserID] = append([]domain.Notification{*n}, f.items[n.UserID]...)
	return nil
}

func (f *fakeInbox) List(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[userID]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]domain.Notification{}, items...), nil
}

func (f *fakeInbox) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, userID)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type countingRecorder map[string]int

func (c countingRecorder) RecordAssignment(outcome string) { c[outcome]++ }

// harness wires both ticket services over shared fakes.
type harness struct {
	tickets     *fakeTicketRepo
	technicians *fakeTechnicianRepo
	categories  *fakeCategoryRepo
	messages    *fakeMessageRepo
	history     *fakeHistoryRepo
	dispatcher  *recordingDispatcher
	recorder    countingRecorder

	ticketSvc *TicketService
	assignSvc *AssignmentService
}

func newHarness() *harness {
	h := &harness{
		technicians: newFakeTechnicianRepo(),
		categories:  newFakeCategoryRepo(),
		history:     &fakeHistoryRepo{},
		dispatcher:  &recordingDispatcher{},
		recorder:    countingRecorder{},
	}
	h.tickets = newFakeTicketRepo(h.technicians)
	h.messages = &fakeMessageRepo{tickets: h.tickets}
	h.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:     h.tickets,
		MessageRepo:    h.messages,
		CategoryRepo:   h.categories,
		TechnicianRepo: h.technicians,
		HistoryRepo:    h.history,
		Dispatcher:     h.dispatcher,
	})
	h.assignSvc = NewAssignmentService(AssignmentDependencies{
		TicketRepo:     h.tickets,
		TechnicianRepo: h.technicians,
		HistoryRepo:    h.history,
		Dispatcher:     h.dispatcher,
		Recorder:       h.recorder,
	})
	return h
}

// seedAssigned stores a ticket already assigned to tech and its linked user.
func (h *harness) seedAssigned(creator string, tech *domain.Technician, status domain.TicketStatus) *domain.Ticket {
	return h.tickets.put(domain.Ticket{
		ExternalKey: "HD-SEED",
		Title:       "seeded",
		Description: "seeded ticket",
		CategoryID:  "hardware",
		Priority:    domain.TicketPriorityMedium,
		Status:      status,
		CreatorID:   creator,
		Assignment:  &domain.Assignment{TechnicianID: tech.ID, UserID: *tech.LinkedUserID},
	})
}

func (h *harness) seedUnassigned(creator string) *domain.Ticket {
	return h.tickets.put(domain.Ticket{
		ExternalKey: "HD-OPEN",
		Title:       "unassigned",
		Description: "waiting for a technician",
		CategoryID:  "hardware",
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusNew,
		CreatorID:   creator,
	})
}
