package service

import (
	"context"
	"errors"
	"time"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
	"gorm.io/gorm"
)

// CountScope selects which tickets the dashboard counters include.
type CountScope string

const (
	CountOpen CountScope = "open"
	CountAll  CountScope = "all"
)

// TicketServicer is the ticket store behind the hospital endpoints. Every call is
// scoped to one hospital; a ticket of another hospital reads as not found.
type TicketServicer interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, hospitalID, id uint64) (*model.Ticket, error)
	List(ctx context.Context, hospitalID uint64) ([]model.Ticket, error)
	Update(ctx context.Context, hospitalID, id uint64, changes map[string]interface{}) (*model.Ticket, error)
	Counts(ctx context.Context, hospitalID uint64, scope CountScope) (model.DashboardCounts, error)
}

type TicketService struct {
	db *gorm.DB
}

func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{db: db}
}

func (s *TicketService) Create(ctx context.Context, t *model.Ticket) error {
	if t.Status == "" {
		t.Status = model.TicketStatusOpen
	}
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *TicketService) GetByID(ctx context.Context, hospitalID, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).Where("hospital_id = ?", hospitalID).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns the hospital's tickets newest first.
func (s *TicketService) List(ctx context.Context, hospitalID uint64) ([]model.Ticket, error) {
	var items []model.Ticket
	err := s.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *TicketService) Update(ctx context.Context, hospitalID, id uint64, changes map[string]interface{}) (*model.Ticket, error) {
	var out *model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.Ticket
		if err := tx.Where("hospital_id = ?", hospitalID).First(&t, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrTicketNotFound
			}
			return err
		}
		if err := CheckTransition(t.Status, changes, time.Now()); err != nil {
			return err
		}
		if len(changes) > 0 {
			if err := tx.Model(&t).Updates(changes).Error; err != nil {
				return err
			}
		}
		// Updates with a map does not refresh every field.
		if err := tx.First(&t, id).Error; err != nil {
			return err
		}
		out = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TicketService) Counts(ctx context.Context, hospitalID uint64, scope CountScope) (model.DashboardCounts, error) {
	var rows []struct {
		Type model.TicketType
		N    int64
	}
	tx := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("type, count(*) AS n").
		Where("hospital_id = ?", hospitalID)
	if scope != CountAll {
		tx = tx.Where("status = ?", model.TicketStatusOpen)
	}
	var counts model.DashboardCounts
	if err := tx.Group("type").Scan(&rows).Error; err != nil {
		return counts, err
	}
	for _, r := range rows {
		addCount(&counts, r.Type, r.N)
	}
	return counts, nil
}

func addCount(c *model.DashboardCounts, t model.TicketType, n int64) {
	switch t {
	case model.TicketTypeStaff:
		c.StaffCount += n
	case model.TicketTypeDoctor:
		c.DoctorCount += n
	case model.TicketTypePRO:
		c.PROCount += n
	default:
		c.RequestCount += n
	}
}

// CheckTransition enforces the one-way status machine on an update. A terminal
// ticket accepts no status change; moving to closed or resolved stamps closed_at.
func CheckTransition(cur model.TicketStatus, changes map[string]interface{}, now time.Time) error {
	v, ok := changes["status"]
	if !ok {
		return nil
	}
	next, _ := v.(model.TicketStatus)
	if !next.Valid() {
		return errs.Invalid("status", "status must be one of open, closed, resolved")
	}
	if next == cur {
		delete(changes, "status")
		return nil
	}
	if cur.Terminal() {
		return errs.ErrTicketClosed
	}
	if next.Terminal() {
		changes["closed_at"] = now
	}
	return nil
}

// Each walks every ticket of every hospital in id order, a batch at a time.
func (s *TicketService) Each(ctx context.Context, fn func(model.Ticket) error) error {
	var batch []model.Ticket
	return s.db.WithContext(ctx).Order("id").FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for _, t := range batch {
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	}).Error
}
