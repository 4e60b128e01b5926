package router

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/portal"
	"github.com/raksha360/hospital-portal/internal/service"
	"github.com/raksha360/hospital-portal/internal/session"
)

// The portal client driven against the stub over real HTTP.
func TestPortalAgainstStub(t *testing.T) {
	s := newStub(t, service.CountOpen)
	srv := httptest.NewServer(s.h)
	defer srv.Close()

	ctx := context.Background()
	client := portal.NewClient(srv.URL, 5*time.Second)
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	accounts := portal.NewAccounts(client, store)

	sess, err := accounts.Signup(ctx, portal.RegisterRequest{
		Name: "City Care", Email: "ops@citycare.in", City: "Pune", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !sess.Valid() || sess.HospitalID == 0 {
		t.Fatalf("expected a usable session, got %+v", sess)
	}

	board := portal.NewBoard(ctx, client, sess)
	defer board.Close()
	if err := board.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	created, err := board.Create(ctx, portal.TicketForm{
		Selector: "staff",
		Count:    "5",
		Fields:   portal.RequestFields{Location: "ICU", Notes: "night shift"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != model.TicketStatusOpen || created.Description != "Location: ICU | Notes: night shift" {
		t.Errorf("unexpected created ticket %+v", created)
	}
	snap := board.Snapshot()
	if snap.Counts.StaffCount != 1 || len(portal.OpenPanel(snap).Tickets) != 1 {
		t.Errorf("expected new ticket counted and shown, got %+v", snap.Counts)
	}

	if _, err := board.Edit(ctx, created.ID, portal.EditForm{Description: "ICU", PayloadText: `{"shift":}`}); err == nil {
		t.Error("expected invalid payload to be rejected")
	}
	edited, err := board.Edit(ctx, created.ID, portal.EditForm{Description: "ICU", Count: "4", PayloadText: `{"shift":"night"}`})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if *edited.Count != 4 || edited.Status != model.TicketStatusOpen {
		t.Errorf("unexpected edited ticket %+v", edited)
	}

	yes := portal.ConfirmFunc(func(context.Context, model.Ticket) (bool, error) { return true, nil })
	if _, err := board.CloseTicket(ctx, created.ID, yes); err != nil {
		t.Fatalf("close: %v", err)
	}
	snap = board.Snapshot()
	if snap.Counts.StaffCount != 0 {
		t.Errorf("closed ticket still counted: %+v", snap.Counts)
	}
	if cur, _ := snap.Find(created.ID); cur.Status != model.TicketStatusClosed {
		t.Errorf("expected closed in snapshot, got %s", cur.Status)
	}
	if _, err := board.CloseTicket(ctx, created.ID, yes); !errors.Is(err, errs.ErrTicketClosed) {
		t.Errorf("expected second close to be refused locally, got %v", err)
	}

	docs, err := client.Doctors(ctx)
	if err != nil || len(docs) != 2 {
		t.Errorf("doctors: %d %v", len(docs), err)
	}
	bill, err := portal.BillingFromLines(sess.HospitalID, []portal.BillingLine{{Description: "Room", Amount: "1500"}, {Description: "Medicine", Amount: "249.50"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := client.CreateBilling(ctx, sess, bill); err != nil {
		t.Errorf("billing: %v", err)
	}
	if got := s.store.Bills(sess.HospitalID); len(got) != 1 || got[0].Total != 1749.5 {
		t.Errorf("unexpected stored bills %+v", got)
	}

	if err := accounts.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := accounts.Current(ctx); !errors.Is(err, errs.ErrNoSession) {
		t.Errorf("expected session cleared, got %v", err)
	}
}

func TestPortalAgainstStub_ValidationDetail(t *testing.T) {
	s := newStub(t, service.CountOpen)
	srv := httptest.NewServer(s.h)
	defer srv.Close()

	client := portal.NewClient(srv.URL, 5*time.Second)
	_, err := client.Register(context.Background(), portal.RegisterRequest{Name: "X", Email: "nope", Password: "secret1"})
	var apiErr *errs.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 422 {
		t.Fatalf("expected 422 APIError, got %v", err)
	}
	if got := errs.Message(err, "Signup failed"); got != "Validation error: email: value is not a valid email address" {
		t.Errorf("unexpected message %q", got)
	}
}
