package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type TicketType string

const (
	TicketTypeStaff  TicketType = "STAFF"
	TicketTypeDoctor TicketType = "DOCTOR"
	TicketTypePRO    TicketType = "PRO"
	TicketTypeOther  TicketType = "OTHER"
)

// NormalizeTicketType maps dialog selectors ("pros", "doctor") and loose spellings onto
// the closed set of ticket types.
func NormalizeTicketType(s string) (TicketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "staff":
		return TicketTypeStaff, nil
	case "doctor", "doctors":
		return TicketTypeDoctor, nil
	case "pro", "pros", "pr":
		return TicketTypePRO, nil
	case "other", "others", "request", "requests":
		return TicketTypeOther, nil
	}
	return "", fmt.Errorf("unknown ticket type %q", s)
}

func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeStaff, TicketTypeDoctor, TicketTypePRO, TicketTypeOther:
		return true
	}
	return false
}

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusClosed   TicketStatus = "closed"
	TicketStatusResolved TicketStatus = "resolved"
)

func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed || s == TicketStatusResolved
}

// Terminal reports whether no further status transition is allowed.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusResolved
}

type Ticket struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	HospitalID  uint64         `gorm:"index;not null" json:"hospital_id"`
	Type        TicketType     `gorm:"type:varchar(16);index;not null" json:"type"`
	Status      TicketStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	Count       *int           `json:"count,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// DashboardCounts are materialized per-type ticket counts. request_count covers OTHER.
type DashboardCounts struct {
	StaffCount   int64 `json:"staff_count"`
	DoctorCount  int64 `json:"doctor_count"`
	PROCount     int64 `json:"pro_count"`
	RequestCount int64 `json:"request_count"`
}

// Of returns the counter a ticket of type t contributes to.
func (c DashboardCounts) Of(t TicketType) int64 {
	switch t {
	case TicketTypeStaff:
		return c.StaffCount
	case TicketTypeDoctor:
		return c.DoctorCount
	case TicketTypePRO:
		return c.PROCount
	default:
		return c.RequestCount
	}
}

type Hospital struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	City         string    `gorm:"type:varchar(128)" json:"city,omitempty"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Doctor struct {
	ID             uint64 `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"type:varchar(255);not null" json:"name"`
	Specialization string `gorm:"type:varchar(128)" json:"specialization"`
	City           string `gorm:"type:varchar(128)" json:"city"`
	Contact        string `gorm:"type:varchar(32)" json:"contact,omitempty"`
}

type Admission struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	HospitalID    uint64    `gorm:"index;not null" json:"hospital_id"`
	PatientName   string    `gorm:"type:varchar(255);not null" json:"name"`
	Age           int       `json:"age"`
	AdmissionDate string    `gorm:"type:date;not null" json:"admission_date"`
	DischargeDate *string   `gorm:"type:date" json:"discharge_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type BillingItem struct {
	ID          uint64  `gorm:"primaryKey" json:"-"`
	BillingID   uint64  `gorm:"index;not null" json:"-"`
	Description string  `gorm:"type:varchar(255);not null" json:"description"`
	Amount      float64 `gorm:"type:numeric(12,2);not null" json:"amount"`
}

type BillingRecord struct {
	ID         uint64        `gorm:"primaryKey" json:"id"`
	HospitalID uint64        `gorm:"index;not null" json:"hospital_id"`
	Items      []BillingItem `gorm:"foreignKey:BillingID" json:"items"`
	Total      float64       `gorm:"type:numeric(12,2);not null" json:"total"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SumItems is the bill total as the portal computes it.
func SumItems(items []BillingItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return total
}
