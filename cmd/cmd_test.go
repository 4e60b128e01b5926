package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raksha360/hospital-portal/internal/auth"
	"github.com/raksha360/hospital-portal/internal/handler"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/router"
	"github.com/raksha360/hospital-portal/internal/service"
)

func TestSplitItem(t *testing.T) {
	cases := map[string]struct{ desc, amount string }{
		"Room=1500":          {"Room", "1500"},
		"Dressing a=b=12.50": {"Dressing a=b", "12.50"},
		"Consultation":       {"Consultation", ""},
	}
	for in, want := range cases {
		got := splitItem(in)
		if got.Description != want.desc || got.Amount != want.amount {
			t.Errorf("splitItem(%q) = %+v", in, got)
		}
	}
}

func TestParseTicketID(t *testing.T) {
	if id, err := parseTicketID("#42"); err != nil || id != 42 {
		t.Errorf("expected 42, got %d %v", id, err)
	}
	for _, bad := range []string{"0", "abc", "-1", ""} {
		if _, err := parseTicketID(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

// run executes the CLI with the given stdin and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_AgainstMemoryStub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := service.NewMemoryStore(service.SeedDoctors...)
	tokens := auth.NewTokens("cli-secret", time.Hour)
	srv := httptest.NewServer(router.New(router.Deps{
		Auth:     handler.NewAuthHandler(store, tokens),
		Hospital: handler.NewHospitalHandler(store),
		Tickets:  handler.NewTicketHandler(store, nil, nil, service.CountOpen),
		Records:  handler.NewRecordsHandler(store),
		Tokens:   tokens,
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("PORTAL_CONFIG", filepath.Join(dir, "missing.yaml"))
	t.Setenv("PORTAL_API_URL", srv.URL)
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("COLUMNS", "100")
	t.Setenv("SESSION_PATH", filepath.Join(dir, "session.json"))

	if _, err := run(t, "", "dashboard"); err == nil || !strings.Contains(err.Error(), "log in") {
		t.Fatalf("expected login hint without a session, got %v", err)
	}

	out, err := run(t, "", "signup", "--name", "City Care", "--email", "ops@citycare.in", "--city", "Pune", "--password", "secret1")
	if err != nil {
		t.Fatalf("signup: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Welcome, City Care") {
		t.Errorf("unexpected signup output %q", out)
	}

	out, err = run(t, "", "tickets", "create", "--type", "staff", "--count", "5", "--location", "ICU")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created STAFF — #") {
		t.Errorf("unexpected create output %q", out)
	}

	if _, err := run(t, "", "tickets", "create", "--type", "staff", "--count", "0"); err == nil || !strings.Contains(err.Error(), "positive whole number") {
		t.Errorf("expected local count validation, got %v", err)
	}

	out, err = run(t, "", "dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	for _, want := range []string{"City Care", "Showing 1 of 1", "Location: ICU"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard output missing %q:\n%s", want, out)
		}
	}

	var list []model.Ticket
	_ = store.Each(context.Background(), func(tk model.Ticket) error {
		list = append(list, tk)
		return nil
	})
	if len(list) != 1 {
		t.Fatalf("expected one stored ticket, got %d", len(list))
	}
	id := "#" + strconv.FormatUint(list[0].ID, 10)

	if _, err := run(t, "n\n", "tickets", "close", id); err == nil || !strings.Contains(err.Error(), "not confirmed") {
		t.Errorf("expected declined close, got %v", err)
	}
	if got, _ := store.GetByID(context.Background(), list[0].HospitalID, list[0].ID); got.Status != model.TicketStatusOpen {
		t.Errorf("declined close changed status to %s", got.Status)
	}
	out, err = run(t, "y\n", "tickets", "close", id)
	if err != nil || !strings.Contains(out, "Closed STAFF") {
		t.Errorf("close: %v\n%s", err, out)
	}

	out, err = run(t, "", "doctors")
	if err != nil || !strings.Contains(out, "https://wa.me/919845012345") {
		t.Errorf("doctors: %v\n%s", err, out)
	}

	if _, err := run(t, "", "logout"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "", "whoami"); err == nil {
		t.Error("expected whoami to fail after logout")
	}
}
