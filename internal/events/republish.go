package events

import (
	"context"
	"log"

	"github.com/raksha360/hospital-portal/internal/model"
)

// TicketSource walks every stored ticket.
type TicketSource interface {
	Each(ctx context.Context, fn func(model.Ticket) error) error
}

// Republish sends a ticket.updated (or ticket.closed) event for every stored ticket,
// so a downstream consumer can rebuild its view. It returns how many were sent.
func Republish(ctx context.Context, src TicketSource, pub Publisher) (int, error) {
	n := 0
	err := src.Each(ctx, func(t model.Ticket) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		pub.PublishTicketEvent(ctx, NewTicketEvent(TicketUpdated, &t))
		n++
		if n%50 == 0 {
			log.Printf("republish: sent %d events", n)
		}
		return nil
	})
	return n, err
}
