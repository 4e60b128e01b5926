package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
)

// HospitalServicer owns hospital accounts.
type HospitalServicer interface {
	Register(ctx context.Context, h *model.Hospital, password string) error
	Authenticate(ctx context.Context, email, password string) (*model.Hospital, error)
	Hospital(ctx context.Context, id uint64) (*model.Hospital, error)
}

const bcryptCost = 12

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}
	return string(b), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type HospitalService struct {
	db *gorm.DB
}

func NewHospitalService(db *gorm.DB) *HospitalService {
	return &HospitalService{db: db}
}

func (s *HospitalService) Register(ctx context.Context, h *model.Hospital, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	h.Email = NormalizeEmail(h.Email)
	h.PasswordHash = hash
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *HospitalService) Authenticate(ctx context.Context, email, password string) (*model.Hospital, error) {
	var h model.Hospital
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&h).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrBadCredentials
		}
		return nil, err
	}
	if !CheckPasswordHash(password, h.PasswordHash) {
		return nil, errs.ErrBadCredentials
	}
	return &h, nil
}

func (s *HospitalService) Hospital(ctx context.Context, id uint64) (*model.Hospital, error) {
	var h model.Hospital
	if err := s.db.WithContext(ctx).First(&h, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrHospitalNotFound
		}
		return nil, err
	}
	return &h, nil
}
