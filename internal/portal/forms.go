package portal

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
)

const (
	msgInvalidCount    = "Count must be a positive whole number"
	msgInvalidJSON     = "Payload contains invalid JSON"
	msgPayloadNotObj   = "Payload must be a JSON object"
	msgUnknownType     = "Choose a request type: staff, doctor, pros or other"
	msgDescriptionSize = "Description is too long"

	maxDescription = 4000
)

// ParseCount reads an optional count field. Blank input yields nil so the field is
// omitted from the request body entirely.
func ParseCount(text string) (*int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return nil, errs.Invalid("count", msgInvalidCount)
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return nil, errs.Invalid("count", msgInvalidCount)
	}
	return &n, nil
}

// ParsePayload reads the edit dialog's payload text. Blank input means "no payload
// change"; anything else must be a syntactically valid JSON object.
func ParsePayload(text string) (datatypes.JSON, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !json.Valid([]byte(text)) {
		return nil, errs.Invalid("payload", msgInvalidJSON)
	}
	if !strings.HasPrefix(text, "{") {
		return nil, errs.Invalid("payload", msgPayloadNotObj)
	}
	return datatypes.JSON(text), nil
}

// RequestFields are the structured inputs of the create dialog.
type RequestFields struct {
	Location      string
	OfferedSalary string
	Notes         string
}

// BuildDescription joins the non-empty sub-fields into the opaque description text.
func BuildDescription(f RequestFields) string {
	var parts []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Location", f.Location)
	add("Offered salary", f.OfferedSalary)
	add("Notes", f.Notes)
	return strings.Join(parts, " | ")
}

// TicketForm is the create dialog as the user filled it in.
type TicketForm struct {
	Selector string // dialog selector or type name: "staff", "pros", "DOCTOR", ...
	Count    string
	Fields   RequestFields
}

type CreateTicketRequest struct {
	Type        model.TicketType `json:"type"`
	Count       *int             `json:"count,omitempty"`
	Description string           `json:"description,omitempty"`
}

func (f TicketForm) Request() (CreateTicketRequest, error) {
	typ, err := model.NormalizeTicketType(f.Selector)
	if err != nil {
		return CreateTicketRequest{}, errs.Invalid("type", msgUnknownType)
	}
	count, err := ParseCount(f.Count)
	if err != nil {
		return CreateTicketRequest{}, err
	}
	desc := BuildDescription(f.Fields)
	if len(desc) > maxDescription {
		return CreateTicketRequest{}, errs.Invalid("description", msgDescriptionSize)
	}
	return CreateTicketRequest{Type: typ, Count: count, Description: desc}, nil
}

// EditForm is the edit dialog. Description is sent as-is; blank Count and
// PayloadText leave those fields untouched.
type EditForm struct {
	Description string
	Count       string
	PayloadText string
}

// NewEditForm pre-fills the dialog from the current ticket.
func NewEditForm(t model.Ticket) EditForm {
	f := EditForm{Description: t.Description}
	if t.Count != nil {
		f.Count = strconv.Itoa(*t.Count)
	}
	if len(t.Payload) > 0 {
		var pretty any
		if json.Unmarshal(t.Payload, &pretty) == nil {
			if b, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				f.PayloadText = string(b)
			}
		}
	}
	return f
}

// UpdateTicketRequest is the PUT body; only non-nil fields are sent.
type UpdateTicketRequest struct {
	Description *string             `json:"description,omitempty"`
	Payload     datatypes.JSON      `json:"payload,omitempty"`
	Count       *int                `json:"count,omitempty"`
	Status      *model.TicketStatus `json:"status,omitempty"`
}

func (f EditForm) Request() (UpdateTicketRequest, error) {
	payload, err := ParsePayload(f.PayloadText)
	if err != nil {
		return UpdateTicketRequest{}, err
	}
	count, err := ParseCount(f.Count)
	if err != nil {
		return UpdateTicketRequest{}, err
	}
	if len(f.Description) > maxDescription {
		return UpdateTicketRequest{}, errs.Invalid("description", msgDescriptionSize)
	}
	desc := f.Description
	return UpdateTicketRequest{Description: &desc, Payload: payload, Count: count}, nil
}

func closeRequest() UpdateTicketRequest {
	st := model.TicketStatusClosed
	return UpdateTicketRequest{Status: &st}
}

// AdmissionForm mirrors the admissions page.
type AdmissionForm struct {
	Name          string
	Age           string
	AdmissionDate string
	DischargeDate string
}

type AdmissionRequest struct {
	HospitalID    uint64  `json:"hospital_id"`
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	AdmissionDate string  `json:"admission_date"`
	DischargeDate *string `json:"discharge_date,omitempty"`
}

const dateLayout = "2006-01-02"

func (f AdmissionForm) Request(hospitalID uint64) (AdmissionRequest, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return AdmissionRequest{}, errs.Invalid("name", "Patient name is required")
	}
	age, err := strconv.Atoi(strings.TrimSpace(f.Age))
	if err != nil || age <= 0 || age > 150 {
		return AdmissionRequest{}, errs.Invalid("age", "Age must be a whole number between 1 and 150")
	}
	admitted, err := time.Parse(dateLayout, strings.TrimSpace(f.AdmissionDate))
	if err != nil {
		return AdmissionRequest{}, errs.Invalid("admission_date", "Admission date must be YYYY-MM-DD")
	}
	req := AdmissionRequest{
		HospitalID:    hospitalID,
		Name:          name,
		Age:           age,
		AdmissionDate: admitted.Format(dateLayout),
	}
	if d := strings.TrimSpace(f.DischargeDate); d != "" {
		discharged, err := time.Parse(dateLayout, d)
		if err != nil {
			return AdmissionRequest{}, errs.Invalid("discharge_date", "Discharge date must be YYYY-MM-DD")
		}
		if discharged.Before(admitted) {
			return AdmissionRequest{}, errs.Invalid("discharge_date", "Discharge date cannot be before admission")
		}
		s := discharged.Format(dateLayout)
		req.DischargeDate = &s
	}
	return req, nil
}

// BillingLine is one row of the billing form, amount still as typed.
type BillingLine struct {
	Description string
	Amount      string
}

type BillingRequest struct {
	HospitalID uint64              `json:"hospital_id"`
	Items      []model.BillingItem `json:"items"`
	Total      float64             `json:"total"`
}

func BillingFromLines(hospitalID uint64, lines []BillingLine) (BillingRequest, error) {
	if len(lines) == 0 {
		return BillingRequest{}, errs.Invalid("items", "Add at least one billing item")
	}
	items := make([]model.BillingItem, 0, len(lines))
	for i, l := range lines {
		desc := strings.TrimSpace(l.Description)
		if desc == "" {
			return BillingRequest{}, errs.Invalid("items", "Item "+strconv.Itoa(i+1)+": description is required")
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(l.Amount), 64)
		if err != nil || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return BillingRequest{}, errs.Invalid("items", "Item "+strconv.Itoa(i+1)+": amount must be a non-negative number")
		}
		items = append(items, model.BillingItem{Description: desc, Amount: amount})
	}
	return BillingRequest{HospitalID: hospitalID, Items: items, Total: model.SumItems(items)}, nil
}
