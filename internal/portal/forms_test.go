package portal

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		omitted bool
		wantErr bool
	}{
		{in: "", omitted: true},
		{in: "   ", omitted: true},
		{in: "5", want: 5},
		{in: " 12 ", want: 12},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1e2", wantErr: true},
		{in: "+4", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.in)
		if tt.wantErr {
			var ve *errs.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("ParseCount(%q): expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCount(%q): unexpected error %v", tt.in, err)
			continue
		}
		if tt.omitted {
			if got != nil {
				t.Errorf("ParseCount(%q): expected nil, got %d", tt.in, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ParseCount(%q): expected %d, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParsePayload(t *testing.T) {
	if p, err := ParsePayload("  "); err != nil || p != nil {
		t.Errorf("expected blank payload to be omitted, got %v %v", p, err)
	}

	_, err := ParsePayload(`{"shift":}`)
	if errs.Message(err, "") != "Payload contains invalid JSON" {
		t.Errorf("expected invalid JSON message, got %v", err)
	}

	_, err = ParsePayload(`[1,2]`)
	if errs.Message(err, "") != "Payload must be a JSON object" {
		t.Errorf("expected object message, got %v", err)
	}

	p, err := ParsePayload(` {"shift":"night"} `)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(p) != `{"shift":"night"}` {
		t.Errorf("unexpected payload %s", p)
	}
}

func TestBuildDescription(t *testing.T) {
	got := BuildDescription(RequestFields{Location: "Pune", Notes: " night shift "})
	if got != "Location: Pune | Notes: night shift" {
		t.Errorf("unexpected description %q", got)
	}
	if BuildDescription(RequestFields{}) != "" {
		t.Error("expected empty description when no fields are set")
	}
}

func TestTicketForm_OmitsEmptyCount(t *testing.T) {
	req, err := TicketForm{Selector: "staff"}.Request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"type":"STAFF"}` {
		t.Errorf("expected count and description omitted, got %s", body)
	}
}

func TestTicketForm_Normalizes(t *testing.T) {
	req, err := TicketForm{Selector: "pros", Count: "2", Fields: RequestFields{OfferedSalary: "15000/month"}}.Request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Type != model.TicketTypePRO || *req.Count != 2 || req.Description != "Offered salary: 15000/month" {
		t.Errorf("unexpected request %+v", req)
	}
	if _, err := (TicketForm{Selector: "janitor"}).Request(); err == nil {
		t.Error("expected unknown selector to be rejected")
	}
}

func TestEditForm_Request(t *testing.T) {
	req, err := EditForm{Description: "x"}.Request()
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(req)
	if string(body) != `{"description":"x"}` {
		t.Errorf("expected only description, got %s", body)
	}
	if strings.Contains(string(body), "status") {
		t.Error("edit must never send status")
	}

	cnt := 3
	form := NewEditForm(model.Ticket{Description: "d", Count: &cnt, Payload: []byte(`{"a":1}`)})
	if form.Count != "3" || !strings.Contains(form.PayloadText, `"a": 1`) {
		t.Errorf("unexpected prefilled form %+v", form)
	}
}

func TestCloseRequestBody(t *testing.T) {
	body, _ := json.Marshal(closeRequest())
	if string(body) != `{"status":"closed"}` {
		t.Errorf("unexpected close body %s", body)
	}
}

func TestAdmissionForm(t *testing.T) {
	req, err := AdmissionForm{Name: "Asha", Age: "34", AdmissionDate: "2025-10-01"}.Request(9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.HospitalID != 9 || req.Age != 34 || req.DischargeDate != nil {
		t.Errorf("unexpected request %+v", req)
	}

	bad := []AdmissionForm{
		{Age: "34", AdmissionDate: "2025-10-01"},
		{Name: "A", Age: "0", AdmissionDate: "2025-10-01"},
		{Name: "A", Age: "30", AdmissionDate: "01/10/2025"},
		{Name: "A", Age: "30", AdmissionDate: "2025-10-05", DischargeDate: "2025-10-01"},
	}
	for _, f := range bad {
		if _, err := f.Request(1); err == nil {
			t.Errorf("expected %+v to be rejected", f)
		}
	}
}

func TestBillingFromLines(t *testing.T) {
	req, err := BillingFromLines(4, []BillingLine{{"Room", "1500"}, {"Medicine", "249.5"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Total != 1749.5 || len(req.Items) != 2 {
		t.Errorf("unexpected bill %+v", req)
	}
	if _, err := BillingFromLines(4, nil); err == nil {
		t.Error("expected empty bill to be rejected")
	}
	if _, err := BillingFromLines(4, []BillingLine{{"Room", "-1"}}); err == nil {
		t.Error("expected negative amount to be rejected")
	}
	if _, err := BillingFromLines(4, []BillingLine{{"Room", "NaN"}}); err == nil {
		t.Error("expected NaN amount to be rejected")
	}
}
