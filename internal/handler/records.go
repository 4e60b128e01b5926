package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raksha360/hospital-portal/internal/middleware"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/service"
)

type RecordsHandler struct {
	svc service.RecordServicer
}

func NewRecordsHandler(svc service.RecordServicer) *RecordsHandler {
	return &RecordsHandler{svc: svc}
}

// Doctors is public.
func (h *RecordsHandler) Doctors(c *gin.Context) {
	docs, err := h.svc.Doctors(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Doctor{}
	}
	c.JSON(http.StatusOK, docs)
}

type admissionRequest struct {
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	AdmissionDate string  `json:"admission_date"`
	DischargeDate *string `json:"discharge_date"`
}

func (h *RecordsHandler) CreateAdmission(c *gin.Context) {
	var req admissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"})
		return
	}
	var bad []fieldError
	if strings.TrimSpace(req.Name) == "" {
		bad = append(bad, bodyField("name", "field required"))
	}
	if req.Age <= 0 {
		bad = append(bad, bodyField("age", "ensure this value is greater than 0"))
	}
	admitted, err := time.Parse(time.DateOnly, req.AdmissionDate)
	if err != nil {
		bad = append(bad, bodyField("admission_date", "invalid date format"))
	}
	if req.DischargeDate != nil && *req.DischargeDate != "" {
		discharged, err := time.Parse(time.DateOnly, *req.DischargeDate)
		switch {
		case err != nil:
			bad = append(bad, bodyField("discharge_date", "invalid date format"))
		case discharged.Before(admitted):
			bad = append(bad, bodyField("discharge_date", "discharge date cannot be before admission date"))
		}
	} else {
		req.DischargeDate = nil
	}
	if len(bad) > 0 {
		unprocessable(c, bad...)
		return
	}
	a := &model.Admission{
		HospitalID:    middleware.HospitalID(c),
		PatientName:   strings.TrimSpace(req.Name),
		Age:           req.Age,
		AdmissionDate: req.AdmissionDate,
		DischargeDate: req.DischargeDate,
	}
	if err := h.svc.CreateAdmission(c.Request.Context(), a); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type billingRequest struct {
	Items []struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	} `json:"items"`
	Total *float64 `json:"total"`
}

// CreateBilling stores a bill. A client-supplied total must match the item sum.
func (h *RecordsHandler) CreateBilling(c *gin.Context) {
	var req billingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"})
		return
	}
	if len(req.Items) == 0 {
		unprocessable(c, bodyField("items", "ensure this value has at least 1 items"))
		return
	}
	var bad []fieldError
	items := make([]model.BillingItem, 0, len(req.Items))
	for i, it := range req.Items {
		idx := strconv.Itoa(i)
		if strings.TrimSpace(it.Description) == "" {
			bad = append(bad, fieldError{Loc: []string{"body", "items", idx, "description"}, Msg: "field required", Type: "value_error.missing"})
		}
		if it.Amount < 0 {
			bad = append(bad, fieldError{Loc: []string{"body", "items", idx, "amount"}, Msg: "ensure this value is greater than or equal to 0", Type: "value_error"})
		}
		items = append(items, model.BillingItem{Description: strings.TrimSpace(it.Description), Amount: it.Amount})
	}
	if req.Total != nil && math.Abs(*req.Total-model.SumItems(items)) > 0.005 {
		bad = append(bad, bodyField("total", "total does not match the sum of item amounts"))
	}
	if len(bad) > 0 {
		unprocessable(c, bad...)
		return
	}
	rec := &model.BillingRecord{HospitalID: middleware.HospitalID(c), Items: items}
	if err := h.svc.CreateBilling(c.Request.Context(), rec); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
