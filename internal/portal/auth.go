package portal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/session"
)

// Accounts runs the login, signup and logout flows and owns the session lifecycle.
type Accounts struct {
	client *Client
	store  session.Store
}

func NewAccounts(client *Client, store session.Store) *Accounts {
	return &Accounts{client: client, store: store}
}

// Current returns the stored session or errs.ErrNoSession.
func (a *Accounts) Current(ctx context.Context) (*session.Session, error) {
	return a.store.Load(ctx)
}

// Login exchanges credentials for a token, then tries to fetch the display profile.
// A failed profile fetch does not fail the login.
func (a *Accounts) Login(ctx context.Context, email, password string) (*session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errs.Invalid("credentials", "Email and password are required")
	}
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess := &session.Session{
		Token:         res.Token,
		HospitalID:    res.HospitalID,
		HospitalName:  res.Name,
		HospitalEmail: res.Email,
	}
	a.fillProfile(ctx, sess)
	if err := a.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (a *Accounts) fillProfile(ctx context.Context, sess *session.Session) {
	h, err := a.client.Profile(ctx, sess)
	if err != nil {
		log.Printf("portal: fetch hospital profile: %v", err)
		return
	}
	if h.Name != "" {
		sess.HospitalName = h.Name
	}
	if h.Email != "" {
		sess.HospitalEmail = h.Email
	}
	if sess.HospitalID == 0 {
		sess.HospitalID = h.ID
	}
}

// Signup registers the hospital and logs it in, using the token from the register
// response when there is one and a regular login otherwise.
func (a *Accounts) Signup(ctx context.Context, in RegisterRequest) (*session.Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.City = strings.TrimSpace(in.City)
	switch {
	case in.Name == "":
		return nil, errs.Invalid("name", "Hospital name is required")
	case !strings.Contains(in.Email, "@"):
		return nil, errs.Invalid("email", "A valid email is required")
	case len(in.Password) < 6:
		return nil, errs.Invalid("password", "Password must be at least 6 characters")
	}

	reg, err := a.client.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	sess := &session.Session{
		Token:         reg.Token,
		HospitalID:    reg.HospitalID,
		HospitalName:  firstNonEmpty(reg.Name, in.Name),
		HospitalEmail: firstNonEmpty(reg.Email, in.Email),
	}
	if sess.Token == "" {
		res, err := a.client.Login(ctx, in.Email, in.Password)
		if err != nil {
			return nil, &SignupLoginError{Err: err}
		}
		sess.Token = res.Token
		if res.HospitalID != 0 {
			sess.HospitalID = res.HospitalID
		}
	}
	if err := a.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// SignupLoginError means the account exists but the automatic login failed.
type SignupLoginError struct {
	Err error
}

func (e *SignupLoginError) Error() string {
	return "account created, but automatic login failed: " + e.Err.Error()
}

func (e *SignupLoginError) Unwrap() error { return e.Err }

// Logout clears every stored session key.
func (a *Accounts) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil && !errors.Is(err, errs.ErrNoSession) {
		return err
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
