package portal

import (
	"errors"
	"testing"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
)

func TestDecodeTicket_FieldVariants(t *testing.T) {
	list, err := decodeTicketList([]byte(`[
		{"id": 1, "type": "STAFF", "status": "open", "count": 5, "description": "a", "created_at": "2025-09-30T19:51:00Z"},
		{"id": "2", "request_type": "doctor", "state": "CLOSED", "count": "3", "details": "b", "createdAt": "2025-09-30T19:51:00.123456"},
		{"id": 3, "type": "mystery", "payload": {"k": "v"}, "timestamp": 1759261860},
		{"id": 4, "type": "PRO", "payload": "not an object", "count": null}
	]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 tickets, got %d", len(list))
	}

	if list[0].Type != model.TicketTypeStaff || *list[0].Count != 5 || list[0].CreatedAt.IsZero() {
		t.Errorf("unexpected first ticket %+v", list[0])
	}
	if list[1].ID != 2 || list[1].Type != model.TicketTypeDoctor || list[1].Status != model.TicketStatusClosed {
		t.Errorf("unexpected second ticket %+v", list[1])
	}
	if list[1].Description != "b" || *list[1].Count != 3 || list[1].CreatedAt.IsZero() {
		t.Errorf("expected details/createdAt variants mapped, got %+v", list[1])
	}
	if list[2].Type != model.TicketTypeOther || list[2].Status != model.TicketStatusOpen {
		t.Errorf("expected unknown type to become OTHER and status open, got %+v", list[2])
	}
	if string(list[2].Payload) != `{"k": "v"}` || list[2].CreatedAt.IsZero() {
		t.Errorf("unexpected payload or time %+v", list[2])
	}
	if list[3].Payload != nil || list[3].Count != nil {
		t.Errorf("expected non-object payload and null count dropped, got %+v", list[3])
	}
}

func TestDecodeTicketList_Wrapped(t *testing.T) {
	list, err := decodeTicketList([]byte(`{"tickets": [{"id": 9, "type": "OTHER"}], "total": 1}`))
	if err != nil || len(list) != 1 || list[0].ID != 9 {
		t.Fatalf("expected one wrapped ticket, got %v %v", list, err)
	}
	if _, err := decodeTicketList([]byte(`{"total": 1}`)); !errors.Is(err, errs.ErrServer) {
		t.Errorf("expected ErrServer for missing list, got %v", err)
	}
}

func TestDecodeAPIError(t *testing.T) {
	err := decodeAPIError(400, []byte(`{"detail": "Invalid count"}`))
	if errs.Message(err, "Failed") != "Invalid count" {
		t.Errorf("unexpected message %q", errs.Message(err, "Failed"))
	}

	err = decodeAPIError(422, []byte(`{"detail": [{"loc": ["body", "email"], "msg": "value is not a valid email"}, {"loc": ["body", "items", 0, "amount"], "msg": "required"}]}`))
	want := "Validation error: email: value is not a valid email | items.0.amount: required"
	if errs.Message(err, "Failed") != want {
		t.Errorf("expected %q, got %q", want, errs.Message(err, "Failed"))
	}

	err = decodeAPIError(500, []byte(`<html>oops</html>`))
	if errs.Message(err, "Failed") != "Failed" {
		t.Errorf("expected fallback, got %q", errs.Message(err, "Failed"))
	}

	err = decodeAPIError(404, []byte(`{"error": "ticket not found"}`))
	var ae *errs.APIError
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Detail != "ticket not found" {
		t.Errorf("expected gin-style error body to map, got %#v", err)
	}
}

func TestDecodeHospital_Nested(t *testing.T) {
	h, err := decodeHospital([]byte(`{"hospital": {"id": 3, "name": "Raksha360", "email": "ops@raksha.in"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if h.ID != 3 || h.Name != "Raksha360" || h.Email != "ops@raksha.in" {
		t.Errorf("unexpected hospital %+v", h)
	}
	h, _ = decodeHospital([]byte(`{"hospital_name": "City Care", "hospital_email": "c@c.in"}`))
	if h.Name != "City Care" || h.Email != "c@c.in" {
		t.Errorf("unexpected hospital %+v", h)
	}
}

func TestDecodeLogin(t *testing.T) {
	res, err := decodeLogin([]byte(`{"access_token": "tok", "token_type": "bearer", "hospital_id": "12"}`))
	if err != nil || res.Token != "tok" || res.HospitalID != 12 {
		t.Errorf("unexpected login result %+v %v", res, err)
	}
	if _, err := decodeLogin([]byte(`{"token_type": "bearer"}`)); err == nil {
		t.Error("expected error for missing token")
	}
}
