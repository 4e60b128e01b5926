package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raksha360/hospital-portal/internal/auth"
	"github.com/raksha360/hospital-portal/internal/events"
	"github.com/raksha360/hospital-portal/internal/handler"
	"github.com/raksha360/hospital-portal/internal/metrics"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	ch chan events.TicketEvent
}

func (p *recordingPublisher) PublishTicketEvent(_ context.Context, evt events.TicketEvent) {
	p.ch <- evt
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) next(t *testing.T) events.TicketEvent {
	t.Helper()
	select {
	case evt := <-p.ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ticket event")
		return events.TicketEvent{}
	}
}

type stub struct {
	h      http.Handler
	store  *service.MemoryStore
	events *recordingPublisher
}

func newStub(t *testing.T, scope service.CountScope) *stub {
	t.Helper()
	store := service.NewMemoryStore(
		model.Doctor{Name: "Dr. Asha Rao", Specialization: "Cardiology", City: "Pune", Contact: "9876543210"},
		model.Doctor{Name: "Dr. Vikram Shah", Specialization: "Orthopedics", City: "Mumbai"},
	)
	pub := &recordingPublisher{ch: make(chan events.TicketEvent, 16)}
	tokens := auth.NewTokens("test-secret", time.Hour)
	m := metrics.New()
	h := New(Deps{
		Auth:     handler.NewAuthHandler(store, tokens),
		Hospital: handler.NewHospitalHandler(store),
		Tickets:  handler.NewTicketHandler(store, pub, m, scope),
		Records:  handler.NewRecordsHandler(store),
		Tokens:   tokens,
		Metrics:  m,
	})
	return &stub{h: h, store: store, events: pub}
}

func (s *stub) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

// signup registers a hospital and logs it in, returning its token and id.
func (s *stub) signup(t *testing.T, email string) (string, uint64) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/hospital/register", "", map[string]string{
		"name": "City Care", "email": email, "city": "Pune", "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "access_token") {
		t.Error("register must not issue a token")
	}

	form := url.Values{"username": {email}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/hospital/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	login := httptest.NewRecorder()
	s.h.ServeHTTP(login, req)
	if login.Code != http.StatusOK {
		t.Fatalf("login: %d %s", login.Code, login.Body)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		HospitalID  uint64 `json:"hospital_id"`
	}
	decode(t, login, &tok)
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("unexpected token response %+v", tok)
	}
	return tok.AccessToken, tok.HospitalID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
}

func TestStub_TicketLifecycle(t *testing.T) {
	s := newStub(t, service.CountOpen)
	token, _ := s.signup(t, "ops@citycare.in")

	rec := s.do(t, http.MethodPost, "/hospital/requests", token, map[string]interface{}{
		"type": "STAFF", "count": 3, "description": "Night nurses", "payload": map[string]string{"shift": "night"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var staff model.Ticket
	decode(t, rec, &staff)
	if staff.Type != model.TicketTypeStaff || staff.Status != model.TicketStatusOpen || *staff.Count != 3 {
		t.Errorf("unexpected ticket %+v", staff)
	}
	if evt := s.events.next(t); evt.Event != events.TicketCreated || evt.TicketID != staff.ID {
		t.Errorf("unexpected event %+v", evt)
	}

	if rec := s.do(t, http.MethodPost, "/hospital/requests", token, map[string]interface{}{"type": "OTHER", "count": 1}); rec.Code != http.StatusCreated {
		t.Fatalf("create other: %d", rec.Code)
	}
	s.events.next(t)

	var list []model.Ticket
	decode(t, s.do(t, http.MethodGet, "/hospital/requests", token, nil), &list)
	if len(list) != 2 || list[0].Type != model.TicketTypeOther {
		t.Fatalf("expected two tickets newest first, got %+v", list)
	}

	var counts model.DashboardCounts
	decode(t, s.do(t, http.MethodGet, "/hospital/dashboard", token, nil), &counts)
	if counts != (model.DashboardCounts{StaffCount: 1, RequestCount: 1}) {
		t.Errorf("unexpected counts %+v", counts)
	}

	path := fmt.Sprintf("/tickets/%d", staff.ID)
	rec = s.do(t, http.MethodPut, path, token, map[string]string{"status": "closed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: %d %s", rec.Code, rec.Body)
	}
	var closed model.Ticket
	decode(t, rec, &closed)
	if closed.Status != model.TicketStatusClosed || closed.ClosedAt == nil || closed.Description != "Night nurses" {
		t.Errorf("unexpected closed ticket %+v", closed)
	}
	if evt := s.events.next(t); evt.Event != events.TicketClosed {
		t.Errorf("expected ticket.closed, got %s", evt.Event)
	}

	decode(t, s.do(t, http.MethodGet, "/hospital/dashboard", token, nil), &counts)
	if counts.StaffCount != 0 || counts.RequestCount != 1 {
		t.Errorf("closed ticket still counted: %+v", counts)
	}

	rec = s.do(t, http.MethodPut, path, token, map[string]string{"status": "open"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected reopen to conflict, got %d %s", rec.Code, rec.Body)
	}
	rec = s.do(t, http.MethodPut, path, token, map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected empty update to be rejected, got %d", rec.Code)
	}
}

func TestStub_CountScopeAll(t *testing.T) {
	s := newStub(t, service.CountAll)
	token, _ := s.signup(t, "ops@citycare.in")
	rec := s.do(t, http.MethodPost, "/hospital/requests", token, map[string]interface{}{"type": "PRO", "count": 1})
	var tk model.Ticket
	decode(t, rec, &tk)
	s.do(t, http.MethodPut, fmt.Sprintf("/tickets/%d", tk.ID), token, map[string]string{"status": "resolved"})

	var counts model.DashboardCounts
	decode(t, s.do(t, http.MethodGet, "/hospital/dashboard", token, nil), &counts)
	if counts.PROCount != 1 {
		t.Errorf("expected resolved ticket counted under scope all, got %+v", counts)
	}
}

func TestStub_ValidationDetailIsAList(t *testing.T) {
	s := newStub(t, service.CountOpen)
	token, _ := s.signup(t, "ops@citycare.in")

	rec := s.do(t, http.MethodPost, "/hospital/requests", token, map[string]interface{}{
		"type": "NURSE", "count": 0, "payload": []int{1},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body struct {
		Detail []struct {
			Loc []string `json:"loc"`
			Msg string   `json:"msg"`
		} `json:"detail"`
	}
	decode(t, rec, &body)
	if len(body.Detail) != 3 {
		t.Fatalf("expected three field errors, got %+v", body.Detail)
	}
	if got := strings.Join(body.Detail[0].Loc, "."); got != "body.type" {
		t.Errorf("unexpected first loc %q", got)
	}

	rec = s.do(t, http.MethodGet, "/tickets/abc", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad path id, got %d", rec.Code)
	}
}

func TestStub_HospitalIsolation(t *testing.T) {
	s := newStub(t, service.CountOpen)
	tokenA, idA := s.signup(t, "a@citycare.in")
	tokenB, idB := s.signup(t, "b@citycare.in")

	rec := s.do(t, http.MethodPost, "/hospital/requests", tokenA, map[string]interface{}{"type": "DOCTOR", "count": 2})
	var tk model.Ticket
	decode(t, rec, &tk)

	if rec := s.do(t, http.MethodGet, fmt.Sprintf("/tickets/%d", tk.ID), tokenB, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected other hospital to get 404, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, fmt.Sprintf("/hospital/%d", idA), tokenB, nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 reading another hospital, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/hospital/%d", idB), tokenB, nil)
	var wrapped struct {
		Hospital model.Hospital `json:"hospital"`
	}
	decode(t, rec, &wrapped)
	if wrapped.Hospital.Email != "b@citycare.in" {
		t.Errorf("unexpected profile %+v", wrapped.Hospital)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("profile leaks password hash")
	}
}

func TestStub_AuthErrors(t *testing.T) {
	s := newStub(t, service.CountOpen)
	s.signup(t, "ops@citycare.in")

	rec := s.do(t, http.MethodGet, "/hospital/dashboard", "", nil)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Not authenticated") {
		t.Errorf("expected 401 without token, got %d %s", rec.Code, rec.Body)
	}

	form := url.Values{"username": {"ops@citycare.in"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/hospital/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	login := httptest.NewRecorder()
	s.h.ServeHTTP(login, req)
	if login.Code != http.StatusUnauthorized || !strings.Contains(login.Body.String(), "Incorrect email or password") {
		t.Errorf("unexpected bad login answer %d %s", login.Code, login.Body)
	}

	rec = s.do(t, http.MethodPost, "/hospital/register", "", map[string]string{
		"name": "Dup", "email": "OPS@citycare.in", "password": "secret1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected duplicate email to be rejected, got %d", rec.Code)
	}
}

func TestStub_Records(t *testing.T) {
	s := newStub(t, service.CountOpen)
	token, id := s.signup(t, "ops@citycare.in")

	var docs []model.Doctor
	decode(t, s.do(t, http.MethodGet, "/doctors", "", nil), &docs)
	if len(docs) != 2 {
		t.Errorf("expected seeded doctors, got %d", len(docs))
	}

	rec := s.do(t, http.MethodPost, "/hospital/admissions", token, map[string]interface{}{
		"name": "Ravi Kumar", "age": 52, "admission_date": "2025-10-01", "discharge_date": "2025-09-30",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected discharge before admission to be rejected, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/hospital/admissions", token, map[string]interface{}{
		"name": "Ravi Kumar", "age": 52, "admission_date": "2025-10-01",
	})
	if rec.Code != http.StatusCreated || len(s.store.Admissions(id)) != 1 {
		t.Errorf("admission not stored: %d %s", rec.Code, rec.Body)
	}

	items := []map[string]interface{}{{"description": "Room", "amount": 1500}, {"description": "Medicine", "amount": 249.5}}
	rec = s.do(t, http.MethodPost, "/hospital/billing", token, map[string]interface{}{"items": items, "total": 100})
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "total") {
		t.Errorf("expected total mismatch, got %d %s", rec.Code, rec.Body)
	}
	rec = s.do(t, http.MethodPost, "/hospital/billing", token, map[string]interface{}{"items": items, "total": 1749.5})
	var bill model.BillingRecord
	decode(t, rec, &bill)
	if rec.Code != http.StatusCreated || bill.Total != 1749.5 || len(bill.Items) != 2 {
		t.Errorf("unexpected bill %d %+v", rec.Code, bill)
	}
}

func TestStub_OpsEndpoints(t *testing.T) {
	s := newStub(t, service.CountOpen)

	rec := s.do(t, http.MethodGet, "/swagger/openapi.json", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/hospital/dashboard") {
		t.Errorf("openapi document not served: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/ready", "", nil); rec.Code != http.StatusOK {
		t.Errorf("ready: %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, PathMetrics, "", nil)
	if !strings.Contains(rec.Body.String(), `hospital_portal_http_requests_total{code="200",method="GET",route="/health"}`) {
		t.Errorf("request metric missing from:\n%s", rec.Body)
	}
}
