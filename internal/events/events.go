// Package events publishes ticket lifecycle events for downstream consumers.
// Publishing is best-effort: a broker outage never fails an API call.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/raksha360/hospital-portal/internal/model"
)

const (
	TicketCreated = "ticket.created"
	TicketUpdated = "ticket.updated"
	TicketClosed  = "ticket.closed"
)

type TicketEvent struct {
	ID         string             `json:"id"`
	Event      string             `json:"event"`
	TicketID   uint64             `json:"ticket_id"`
	HospitalID uint64             `json:"hospital_id"`
	Type       model.TicketType   `json:"type"`
	Status     model.TicketStatus `json:"status"`
	Count      *int               `json:"count,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// NewTicketEvent builds an event for t. Status transitions to a terminal state are
// reported as ticket.closed.
func NewTicketEvent(event string, t *model.Ticket) TicketEvent {
	if event == TicketUpdated && t.Status.Terminal() {
		event = TicketClosed
	}
	return TicketEvent{
		ID:         uuid.NewString(),
		Event:      event,
		TicketID:   t.ID,
		HospitalID: t.HospitalID,
		Type:       t.Type,
		Status:     t.Status,
		Count:      t.Count,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher is implemented by the broker adapters and by test fakes.
type Publisher interface {
	PublishTicketEvent(ctx context.Context, evt TicketEvent)
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishTicketEvent(context.Context, TicketEvent) {}
func (Nop) Close() error                                    { return nil }

// Fanout publishes to every configured broker.
type Fanout []Publisher

func (f Fanout) PublishTicketEvent(ctx context.Context, evt TicketEvent) {
	for _, p := range f {
		p.PublishTicketEvent(ctx, evt)
	}
}

func (f Fanout) Close() error {
	var first error
	for _, p := range f {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
