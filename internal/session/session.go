// Package session holds the logged-in hospital's credentials between portal commands.
package session

import (
	"context"
	"strconv"

	"github.com/raksha360/hospital-portal/internal/errs"
)

// Session is created by login or signup and cleared by logout. Every authenticated
// portal call takes one explicitly.
type Session struct {
	Token         string
	HospitalID    uint64
	HospitalName  string
	HospitalEmail string
}

func (s *Session) Authorization() string {
	return "Bearer " + s.Token
}

// Valid reports whether the session can authenticate requests.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}

// Store persists a Session. Load returns errs.ErrNoSession when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Fixed keys, shared by every backend. Clear removes all of them together.
const (
	KeyToken         = "hospitalToken"
	KeyHospitalID    = "hospitalId"
	KeyHospitalName  = "hospitalName"
	KeyHospitalEmail = "hospitalEmail"
)

func toFields(s *Session) map[string]string {
	out := map[string]string{KeyToken: s.Token}
	if s.HospitalID != 0 {
		out[KeyHospitalID] = strconv.FormatUint(s.HospitalID, 10)
	}
	if s.HospitalName != "" {
		out[KeyHospitalName] = s.HospitalName
	}
	if s.HospitalEmail != "" {
		out[KeyHospitalEmail] = s.HospitalEmail
	}
	return out
}

func fromFields(m map[string]string) (*Session, error) {
	if m[KeyToken] == "" {
		return nil, errs.ErrNoSession
	}
	s := &Session{
		Token:         m[KeyToken],
		HospitalName:  m[KeyHospitalName],
		HospitalEmail: m[KeyHospitalEmail],
	}
	if v := m[KeyHospitalID]; v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, errs.ErrNoSession
		}
		s.HospitalID = id
	}
	return s, nil
}
