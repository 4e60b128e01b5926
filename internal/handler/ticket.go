package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/raksha360/hospital-portal/internal/events"
	"github.com/raksha360/hospital-portal/internal/metrics"
	"github.com/raksha360/hospital-portal/internal/middleware"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/service"
)

const maxDescription = 4000

type TicketHandler struct {
	svc     service.TicketServicer
	events  events.Publisher
	metrics *metrics.Metrics
	scope   service.CountScope
}

func NewTicketHandler(svc service.TicketServicer, pub events.Publisher, m *metrics.Metrics, scope service.CountScope) *TicketHandler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TicketHandler{svc: svc, events: pub, metrics: m, scope: scope}
}

// publish hands the event to the brokers without holding up the response.
func (h *TicketHandler) publish(name string, t *model.Ticket) {
	evt := events.NewTicketEvent(name, t)
	if h.metrics != nil {
		h.metrics.TicketEvent(evt.Event, string(t.Type))
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.events.PublishTicketEvent(ctx, evt)
	}()
}

type createTicketRequest struct {
	Type        string          `json:"type"`
	Count       *int            `json:"count"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"})
		return
	}
	var bad []fieldError
	typ, err := model.NormalizeTicketType(req.Type)
	if err != nil {
		bad = append(bad, bodyField("type", "value is not a valid enumeration member; permitted: 'STAFF', 'DOCTOR', 'PRO', 'OTHER'"))
	}
	if req.Count != nil && *req.Count <= 0 {
		bad = append(bad, bodyField("count", "ensure this value is greater than 0"))
	}
	if len(req.Description) > maxDescription {
		bad = append(bad, bodyField("description", "ensure this value has at most 4000 characters"))
	}
	payload, ok := objectPayload(req.Payload)
	if !ok {
		bad = append(bad, bodyField("payload", "value is not a valid dict"))
	}
	if len(bad) > 0 {
		unprocessable(c, bad...)
		return
	}
	ticket := &model.Ticket{
		HospitalID:  middleware.HospitalID(c),
		Type:        typ,
		Status:      model.TicketStatusOpen,
		Count:       req.Count,
		Description: strings.TrimSpace(req.Description),
		Payload:     payload,
	}
	if err := h.svc.Create(c.Request.Context(), ticket); err != nil {
		writeError(c, err)
		return
	}
	h.publish(events.TicketCreated, ticket)
	c.JSON(http.StatusCreated, ticket)
}

// objectPayload accepts an absent/null payload or a JSON object.
func objectPayload(raw json.RawMessage) (datatypes.JSON, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, true
	}
	if raw[0] != '{' {
		return nil, false
	}
	return datatypes.JSON(raw), true
}

// List returns the hospital's tickets newest first as a bare array.
func (h *TicketHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), middleware.HospitalID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), middleware.HospitalID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func ticketID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		unprocessable(c, fieldError{Loc: []string{"path", "id"}, Msg: "value is not a valid integer", Type: "type_error.integer"})
		return 0, false
	}
	return id, true
}

type updateTicketRequest struct {
	Description *string         `json:"description"`
	Count       *int            `json:"count"`
	Payload     json.RawMessage `json:"payload"`
	Status      *string         `json:"status"`
}

func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"})
		return
	}
	changes := make(map[string]interface{})
	var bad []fieldError
	if req.Description != nil {
		if len(*req.Description) > maxDescription {
			bad = append(bad, bodyField("description", "ensure this value has at most 4000 characters"))
		}
		changes["description"] = *req.Description
	}
	if req.Count != nil {
		if *req.Count <= 0 {
			bad = append(bad, bodyField("count", "ensure this value is greater than 0"))
		}
		changes["count"] = *req.Count
	}
	if len(req.Payload) > 0 {
		payload, ok := objectPayload(req.Payload)
		if !ok {
			bad = append(bad, bodyField("payload", "value is not a valid dict"))
		} else if payload != nil {
			changes["payload"] = payload
		}
	}
	if req.Status != nil {
		st := model.TicketStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !st.Valid() {
			bad = append(bad, bodyField("status", "value is not a valid enumeration member; permitted: 'open', 'closed', 'resolved'"))
		}
		changes["status"] = st
	}
	if len(bad) > 0 {
		unprocessable(c, bad...)
		return
	}
	if len(changes) == 0 {
		detail(c, http.StatusBadRequest, "No changes")
		return
	}
	t, err := h.svc.Update(c.Request.Context(), middleware.HospitalID(c), id, changes)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(events.TicketUpdated, t)
	c.JSON(http.StatusOK, t)
}

// Dashboard serves the per-type counters. By default only open tickets count.
func (h *TicketHandler) Dashboard(c *gin.Context) {
	counts, err := h.svc.Counts(c.Request.Context(), middleware.HospitalID(c), h.scope)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
