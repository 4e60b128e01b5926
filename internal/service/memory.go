package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
)

// MemoryStore implements every stub store interface in process memory. It backs
// STUB_STORE=memory and the handler tests.
type MemoryStore struct {
	mu        sync.Mutex
	now       func() time.Time
	tickets   []model.Ticket
	hospitals []model.Hospital
	doctors   []model.Doctor
	admits    []model.Admission
	bills     []model.BillingRecord
	seq       uint64
}

var (
	_ TicketServicer   = (*MemoryStore)(nil)
	_ HospitalServicer = (*MemoryStore)(nil)
	_ RecordServicer   = (*MemoryStore)(nil)
)

// SeedDoctors mirrors the doctor rows the postgres migrations insert.
var SeedDoctors = []model.Doctor{
	{Name: "Dr. Asha Rao", Specialization: "Cardiology", City: "Bengaluru", Contact: "9845012345"},
	{Name: "Dr. Vikram Mehta", Specialization: "Orthopaedics", City: "Mumbai", Contact: "9820098200"},
	{Name: "Dr. Farah Khan", Specialization: "Paediatrics", City: "Hyderabad", Contact: "9849011223"},
	{Name: "Dr. Arjun Iyer", Specialization: "General Medicine", City: "Chennai", Contact: "9884055667"},
}

func NewMemoryStore(doctors ...model.Doctor) *MemoryStore {
	m := &MemoryStore{now: time.Now}
	for _, d := range doctors {
		m.seq++
		d.ID = m.seq
		m.doctors = append(m.doctors, d)
	}
	return m
}

func (m *MemoryStore) nextID() uint64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) Create(ctx context.Context, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Status == "" {
		t.Status = model.TicketStatusOpen
	}
	now := m.now()
	t.ID = m.nextID()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tickets = append(m.tickets, *t)
	return nil
}

func (m *MemoryStore) find(hospitalID, id uint64) (int, bool) {
	for i := range m.tickets {
		if m.tickets[i].ID == id && m.tickets[i].HospitalID == hospitalID {
			return i, true
		}
	}
	return 0, false
}

func (m *MemoryStore) GetByID(ctx context.Context, hospitalID, id uint64) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(hospitalID, id)
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	t := m.tickets[i]
	return &t, nil
}

func (m *MemoryStore) List(ctx context.Context, hospitalID uint64) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Ticket{}
	for _, t := range m.tickets {
		if t.HospitalID == hospitalID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, hospitalID, id uint64, changes map[string]interface{}) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.find(hospitalID, id)
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	t := &m.tickets[i]
	now := m.now()
	if err := CheckTransition(t.Status, changes, now); err != nil {
		return nil, err
	}
	for k, v := range changes {
		switch k {
		case "description":
			t.Description, _ = v.(string)
		case "count":
			if n, ok := v.(int); ok {
				t.Count = &n
			}
		case "payload":
			t.Payload, _ = v.(datatypes.JSON)
		case "status":
			t.Status, _ = v.(model.TicketStatus)
		case "closed_at":
			if ts, ok := v.(time.Time); ok {
				t.ClosedAt = &ts
			}
		}
	}
	t.UpdatedAt = now
	out := *t
	return &out, nil
}

// Each walks a copy of every stored ticket in id order.
func (m *MemoryStore) Each(ctx context.Context, fn func(model.Ticket) error) error {
	m.mu.Lock()
	all := append([]model.Ticket(nil), m.tickets...)
	m.mu.Unlock()
	for _, t := range all {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Counts(ctx context.Context, hospitalID uint64, scope CountScope) (model.DashboardCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c model.DashboardCounts
	for _, t := range m.tickets {
		if t.HospitalID != hospitalID {
			continue
		}
		if scope != CountAll && t.Status != model.TicketStatusOpen {
			continue
		}
		addCount(&c, t.Type, 1)
	}
	return c, nil
}

func (m *MemoryStore) Register(ctx context.Context, h *model.Hospital, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h.Email = NormalizeEmail(h.Email)
	for _, existing := range m.hospitals {
		if existing.Email == h.Email {
			return errs.ErrEmailTaken
		}
	}
	h.ID = m.nextID()
	h.PasswordHash = hash
	h.CreatedAt = m.now()
	m.hospitals = append(m.hospitals, *h)
	return nil
}

func (m *MemoryStore) Authenticate(ctx context.Context, email, password string) (*model.Hospital, error) {
	m.mu.Lock()
	var found *model.Hospital
	email = NormalizeEmail(email)
	for i := range m.hospitals {
		if m.hospitals[i].Email == email {
			h := m.hospitals[i]
			found = &h
			break
		}
	}
	m.mu.Unlock()
	if found == nil || !CheckPasswordHash(password, found.PasswordHash) {
		return nil, errs.ErrBadCredentials
	}
	return found, nil
}

func (m *MemoryStore) Hospital(ctx context.Context, id uint64) (*model.Hospital, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hospitals {
		if h.ID == id {
			return &h, nil
		}
	}
	return nil, errs.ErrHospitalNotFound
}

func (m *MemoryStore) Doctors(ctx context.Context) ([]model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Doctor{}, m.doctors...), nil
}

func (m *MemoryStore) CreateAdmission(ctx context.Context, a *model.Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID()
	a.CreatedAt = m.now()
	m.admits = append(m.admits, *a)
	return nil
}

func (m *MemoryStore) CreateBilling(ctx context.Context, b *model.BillingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.nextID()
	b.Total = model.SumItems(b.Items)
	b.CreatedAt = m.now()
	m.bills = append(m.bills, *b)
	return nil
}

// Admissions returns what CreateAdmission stored for hospitalID.
func (m *MemoryStore) Admissions(hospitalID uint64) []model.Admission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Admission
	for _, a := range m.admits {
		if a.HospitalID == hospitalID {
			out = append(out, a)
		}
	}
	return out
}

// Bills returns what CreateBilling stored for hospitalID.
func (m *MemoryStore) Bills(hospitalID uint64) []model.BillingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BillingRecord
	for _, b := range m.bills {
		if b.HospitalID == hospitalID {
			out = append(out, b)
		}
	}
	return out
}
