package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
)

// The backend has shipped several spellings of the same fields. Everything below maps
// them onto the canonical model once, so nothing past this file looks at raw names.

type object map[string]json.RawMessage

func (o object) first(keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := o[k]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

func (o object) str(keys ...string) string {
	raw := o.first(keys...)
	if raw == nil {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	// numbers and other scalars are rendered as their JSON text
	return strings.Trim(string(raw), `"`)
}

func (o object) child(key string) object {
	raw := o.first(key)
	if raw == nil {
		return nil
	}
	var c object
	if json.Unmarshal(raw, &c) != nil {
		return nil
	}
	return c
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func parseUint(raw json.RawMessage) (uint64, bool) {
	if raw == nil {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return v, true
		}
		return 0, false
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw json.RawMessage) time.Time {
	if raw == nil {
		return time.Time{}
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if sec, err := n.Int64(); err == nil {
			if sec > 1e12 { // milliseconds
				return time.UnixMilli(sec).UTC()
			}
			return time.Unix(sec, 0).UTC()
		}
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodeTicket(raw json.RawMessage) (model.Ticket, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return model.Ticket{}, fmt.Errorf("%w: ticket is not an object", errs.ErrServer)
	}
	id, ok := parseUint(o.first("id", "ticket_id"))
	if !ok {
		return model.Ticket{}, fmt.Errorf("%w: ticket without id", errs.ErrServer)
	}
	t := model.Ticket{ID: id}
	t.HospitalID, _ = parseUint(o.first("hospital_id"))

	typ, err := model.NormalizeTicketType(o.str("type", "request_type"))
	if err != nil {
		typ = model.TicketTypeOther
	}
	t.Type = typ

	t.Status = model.TicketStatus(strings.ToLower(strings.TrimSpace(o.str("status", "state"))))
	if t.Status == "" {
		t.Status = model.TicketStatusOpen
	}
	if n, ok := parseUint(o.first("count")); ok {
		c := int(n)
		t.Count = &c
	}
	t.Description = o.str("description", "details")
	if p := o.first("payload"); p != nil && bytes.HasPrefix(bytes.TrimSpace(p), []byte("{")) {
		t.Payload = datatypes.JSON(p)
	}
	t.CreatedAt = parseTime(o.first("created_at", "createdAt", "time", "timestamp"))
	t.UpdatedAt = parseTime(o.first("updated_at", "updatedAt"))
	if closed := parseTime(o.first("closed_at")); !closed.IsZero() {
		t.ClosedAt = &closed
	}
	return t, nil
}

// decodeTicketBody accepts a bare ticket or one wrapped as {"ticket": {...}}.
func decodeTicketBody(body []byte) (*model.Ticket, error) {
	var o object
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, fmt.Errorf("%w: malformed ticket response", errs.ErrServer)
	}
	raw := json.RawMessage(body)
	if inner := o.first("ticket", "request"); inner != nil && o.first("id") == nil {
		raw = inner
	}
	t, err := decodeTicket(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decodeTicketList accepts a bare array or an object wrapping it.
func decodeTicketList(body []byte) ([]model.Ticket, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		var o object
		if json.Unmarshal(body, &o) != nil {
			return nil, fmt.Errorf("%w: malformed ticket list", errs.ErrServer)
		}
		inner := o.first("tickets", "requests", "items", "data")
		if inner == nil || json.Unmarshal(inner, &items) != nil {
			return nil, fmt.Errorf("%w: ticket list not found in response", errs.ErrServer)
		}
	}
	out := make([]model.Ticket, 0, len(items))
	for _, raw := range items {
		t, err := decodeTicket(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeLogin(body []byte) (*LoginResult, error) {
	var o object
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, fmt.Errorf("%w: malformed login response", errs.ErrServer)
	}
	res := &LoginResult{Token: o.str("access_token", "token")}
	if res.Token == "" {
		if data := o.child("data"); data != nil {
			res.Token = data.str("token", "access_token")
		}
	}
	if res.Token == "" {
		return nil, fmt.Errorf("%w: login response carries no token", errs.ErrServer)
	}
	res.HospitalID, _ = parseUint(o.first("hospital_id"))
	if h := o.child("hospital"); h != nil {
		if res.HospitalID == 0 {
			res.HospitalID, _ = parseUint(h.first("id"))
		}
		res.Name = h.str("name")
		res.Email = h.str("email")
	}
	return res, nil
}

func decodeRegister(body []byte) (*RegisterResult, error) {
	var o object
	if len(bytes.TrimSpace(body)) == 0 {
		return &RegisterResult{}, nil
	}
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, fmt.Errorf("%w: malformed register response", errs.ErrServer)
	}
	res := &RegisterResult{Token: o.str("token", "access_token")}
	res.HospitalID, _ = parseUint(o.first("hospital_id", "id"))
	if h := o.child("hospital"); h != nil {
		if id, ok := parseUint(h.first("id")); ok {
			res.HospitalID = id
		}
		res.Name = h.str("name")
		res.Email = h.str("email")
	}
	return res, nil
}

func decodeHospital(body []byte) (*model.Hospital, error) {
	var o object
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, fmt.Errorf("%w: malformed profile", errs.ErrServer)
	}
	h := &model.Hospital{
		Name:  o.str("name", "hospital_name"),
		Email: o.str("email", "hospital_email"),
		City:  o.str("city"),
	}
	h.ID, _ = parseUint(o.first("id", "hospital_id"))
	if inner := o.child("hospital"); inner != nil {
		if h.Name == "" {
			h.Name = inner.str("name")
		}
		if h.Email == "" {
			h.Email = inner.str("email")
		}
		if h.ID == 0 {
			h.ID, _ = parseUint(inner.first("id"))
		}
	}
	return h, nil
}

func decodeDoctors(body []byte) ([]model.Doctor, error) {
	var items []object
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: malformed doctor list", errs.ErrServer)
	}
	out := make([]model.Doctor, 0, len(items))
	for _, o := range items {
		d := model.Doctor{
			Name:           o.str("name"),
			Specialization: o.str("specialization"),
			City:           o.str("city"),
			Contact:        o.str("contact", "phone"),
		}
		d.ID, _ = parseUint(o.first("id"))
		out = append(out, d)
	}
	return out, nil
}

// decodeAPIError reads "detail" as a string or a list of {loc, msg}; gin-style
// {"error": "..."} bodies are accepted too.
func decodeAPIError(status int, body []byte) error {
	ae := &errs.APIError{Status: status}
	var o object
	if json.Unmarshal(body, &o) != nil {
		return ae
	}
	raw := o.first("detail")
	if raw == nil {
		ae.Detail = o.str("error", "message")
		return ae
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		ae.Detail = s
		return ae
	}
	var list []struct {
		Loc []interface{} `json:"loc"`
		Msg string        `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil {
		for _, item := range list {
			fe := errs.FieldError{Msg: item.Msg}
			for _, l := range item.Loc {
				fe.Loc = append(fe.Loc, fmt.Sprint(l))
			}
			ae.Fields = append(ae.Fields, fe)
		}
		return ae
	}
	ae.Detail = strings.TrimSpace(string(raw))
	return ae
}
