package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/raksha360/hospital-portal/internal/model"
)

// RecordServicer covers the doctor directory, admissions and billing.
type RecordServicer interface {
	Doctors(ctx context.Context) ([]model.Doctor, error)
	CreateAdmission(ctx context.Context, a *model.Admission) error
	CreateBilling(ctx context.Context, b *model.BillingRecord) error
}

type RecordService struct {
	db *gorm.DB
}

func NewRecordService(db *gorm.DB) *RecordService {
	return &RecordService{db: db}
}

func (s *RecordService) Doctors(ctx context.Context) ([]model.Doctor, error) {
	var out []model.Doctor
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordService) CreateAdmission(ctx context.Context, a *model.Admission) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// CreateBilling stores the record and its items in one transaction. The total is
// recomputed from the items.
func (s *RecordService) CreateBilling(ctx context.Context, b *model.BillingRecord) error {
	b.Total = model.SumItems(b.Items)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(b).Error
	})
}
