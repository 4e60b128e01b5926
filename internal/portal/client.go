// Package portal is the hospital portal client: it talks to the hospital API, validates
// forms locally and keeps the dashboard view consistent with the ticket store.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/session"
)

const maxBody = 1 << 20

// Client calls the hospital API. It never retries; a breaker only short-circuits calls
// while the backend is unreachable.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	registerTimeout time.Duration
	cb              *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRegisterTimeout bounds the signup call by wall-clock time.
func WithRegisterTimeout(d time.Duration) Option {
	return func(c *Client) { c.registerTimeout = d }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		registerTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hospital-api",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Only transport failures count; an HTTP error answer proves the backend is up.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, errs.ErrServer)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("portal: circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return c
}

type request struct {
	method      string
	path        string
	sess        *session.Session
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, sess *session.Session, v interface{}) (request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("portal: marshal: %w", err)
	}
	return request{method: method, path: path, sess: sess, body: bytes.NewReader(data), contentType: "application/json"}, nil
}

// do executes r and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if r.sess != nil && !r.sess.Valid() {
		return nil, errs.ErrNoSession
	}
	out, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
		if err != nil {
			return nil, fmt.Errorf("portal: new request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}
		if r.sess != nil {
			req.Header.Set("Authorization", r.sess.Authorization())
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("portal: %s %s: %v", r.method, r.path, err)
			return nil, fmt.Errorf("%w: %v", errs.ErrServer, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", errs.ErrServer, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, decodeAPIError(resp.StatusCode, body)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errs.ErrServer, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func decodeInto(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed response: %v", errs.ErrServer, err)
	}
	return nil
}

// LoginResult is what the login endpoint hands back.
type LoginResult struct {
	Token      string
	HospitalID uint64
	Name       string
	Email      string
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/hospital/login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}
	return decodeLogin(body)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	City     string `json:"city"`
	Password string `json:"password"`
}

// RegisterResult carries a token only when the backend logs the new account in directly.
type RegisterResult struct {
	Token      string
	HospitalID uint64
	Name       string
	Email      string
}

// Register creates the hospital account. The call is aborted after the register timeout.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*RegisterResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.registerTimeout)
	defer cancel()
	r, err := jsonRequest(http.MethodPost, "/hospital/register", nil, in)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: registration timed out after %s", errs.ErrServer, c.registerTimeout)
		}
		return nil, err
	}
	return decodeRegister(body)
}

// Profile fetches the display profile, trying /hospital/me before /hospital/{id}.
func (c *Client) Profile(ctx context.Context, sess *session.Session) (*model.Hospital, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/hospital/me", sess: sess})
	if err != nil {
		var ae *errs.APIError
		if !errors.As(err, &ae) || sess.HospitalID == 0 {
			return nil, err
		}
		body, err = c.do(ctx, request{
			method: http.MethodGet,
			path:   "/hospital/" + strconv.FormatUint(sess.HospitalID, 10),
			sess:   sess,
		})
		if err != nil {
			return nil, err
		}
	}
	return decodeHospital(body)
}

func (c *Client) Dashboard(ctx context.Context, sess *session.Session) (model.DashboardCounts, error) {
	var counts model.DashboardCounts
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/hospital/dashboard", sess: sess})
	if err != nil {
		return counts, err
	}
	err = decodeInto(body, &counts)
	return counts, err
}

func (c *Client) ListTickets(ctx context.Context, sess *session.Session) ([]model.Ticket, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/hospital/requests", sess: sess})
	if err != nil {
		return nil, err
	}
	return decodeTicketList(body)
}

func (c *Client) CreateTicket(ctx context.Context, sess *session.Session, in CreateTicketRequest) (*model.Ticket, error) {
	r, err := jsonRequest(http.MethodPost, "/hospital/requests", sess, in)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	return decodeTicketBody(body)
}

func (c *Client) UpdateTicket(ctx context.Context, sess *session.Session, id uint64, in UpdateTicketRequest) (*model.Ticket, error) {
	r, err := jsonRequest(http.MethodPut, "/tickets/"+strconv.FormatUint(id, 10), sess, in)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	return decodeTicketBody(body)
}

// Doctors reads the public directory; no session is attached.
func (c *Client) Doctors(ctx context.Context) ([]model.Doctor, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/doctors"})
	if err != nil {
		return nil, err
	}
	return decodeDoctors(body)
}

func (c *Client) CreateAdmission(ctx context.Context, sess *session.Session, in AdmissionRequest) error {
	r, err := jsonRequest(http.MethodPost, "/hospital/admissions", sess, in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r)
	return err
}

func (c *Client) CreateBilling(ctx context.Context, sess *session.Session, in BillingRequest) error {
	r, err := jsonRequest(http.MethodPost, "/hospital/billing", sess, in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r)
	return err
}
