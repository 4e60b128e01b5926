package portal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/session"
)

// TicketAPI is the part of the hospital API the dashboard needs.
type TicketAPI interface {
	ListTickets(ctx context.Context, sess *session.Session) ([]model.Ticket, error)
	Dashboard(ctx context.Context, sess *session.Session) (model.DashboardCounts, error)
	CreateTicket(ctx context.Context, sess *session.Session, in CreateTicketRequest) (*model.Ticket, error)
	UpdateTicket(ctx context.Context, sess *session.Session, id uint64, in UpdateTicketRequest) (*model.Ticket, error)
}

// Confirmer gates the irreversible close. Returning false must issue no request.
type Confirmer interface {
	Confirm(ctx context.Context, t model.Ticket) (bool, error)
}

type ConfirmFunc func(ctx context.Context, t model.Ticket) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, t model.Ticket) (bool, error) { return f(ctx, t) }

// Snapshot is the last fetched view. Tickets and Counts are replaced wholesale by
// each successful fetch, never merged.
type Snapshot struct {
	Tickets          []model.Ticket
	Counts           model.DashboardCounts
	TicketsFetchedAt time.Time
	CountsFetchedAt  time.Time
}

// Find returns the cached copy of ticket id.
func (s Snapshot) Find(id uint64) (model.Ticket, bool) {
	for _, t := range s.Tickets {
		if t.ID == id {
			return t, true
		}
	}
	return model.Ticket{}, false
}

// ResyncError reports a mutation that succeeded server-side whose follow-up
// re-fetch failed. The half that failed keeps its previous value.
type ResyncError struct {
	Err error
}

func (e *ResyncError) Error() string { return "refresh after save failed: " + e.Err.Error() }
func (e *ResyncError) Unwrap() error { return e.Err }

// Control identifies a submit button; each has its own in-flight guard.
type Control string

const (
	ControlCreate Control = "create"
	ControlEdit   Control = "edit"
	ControlClose  Control = "close"
)

// Board is the dashboard of one UI scope: the cached snapshot plus the ticket
// lifecycle operations. After every successful create, edit or close it re-fetches
// the ticket list and then the dashboard counts. Close tears the scope down; any
// response that lands afterwards is dropped.
type Board struct {
	api  TicketAPI
	sess *session.Session

	scope  context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	snap Snapshot
	busy map[Control]bool
}

func NewBoard(parent context.Context, api TicketAPI, sess *session.Session) *Board {
	scope, cancel := context.WithCancel(parent)
	return &Board{
		api:    api,
		sess:   sess,
		scope:  scope,
		cancel: cancel,
		busy:   make(map[Control]bool),
	}
}

// Close ends the scope. In-flight calls are cancelled and their results discarded.
func (b *Board) Close() {
	b.cancel()
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.snap
	s.Tickets = append([]model.Ticket(nil), b.snap.Tickets...)
	return s
}

// bind ties an operation's context to the scope.
func (b *Board) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.scope, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (b *Board) acquire(c Control) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scope.Err() != nil {
		return errs.ErrScopeClosed
	}
	if b.busy[c] {
		return fmt.Errorf("%s: %w", c, errs.ErrBusy)
	}
	b.busy[c] = true
	return nil
}

func (b *Board) release(c Control) {
	b.mu.Lock()
	delete(b.busy, c)
	b.mu.Unlock()
}

// Busy reports whether a control has a submission in flight.
func (b *Board) Busy(c Control) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy[c]
}

func (b *Board) scopeErr(err error) error {
	if b.scope.Err() != nil {
		return errs.ErrScopeClosed
	}
	return err
}

// Refresh fetches the ticket list, then the dashboard counts. Each successful half
// replaces its cached value; a failed half keeps the previous one.
func (b *Board) Refresh(ctx context.Context) error {
	ctx, done := b.bind(ctx)
	defer done()
	return b.resync(ctx)
}

func (b *Board) resync(ctx context.Context) error {
	var errList []error

	tickets, err := b.api.ListTickets(ctx, b.sess)
	if err != nil {
		errList = append(errList, fmt.Errorf("tickets: %w", b.scopeErr(err)))
	} else if !b.apply(func(s *Snapshot) {
		s.Tickets = tickets
		s.TicketsFetchedAt = time.Now()
	}) {
		return errs.ErrScopeClosed
	}

	counts, err := b.api.Dashboard(ctx, b.sess)
	if err != nil {
		errList = append(errList, fmt.Errorf("dashboard: %w", b.scopeErr(err)))
	} else if !b.apply(func(s *Snapshot) {
		s.Counts = counts
		s.CountsFetchedAt = time.Now()
	}) {
		return errs.ErrScopeClosed
	}
	return errors.Join(errList...)
}

// apply mutates the snapshot unless the scope is gone.
func (b *Board) apply(fn func(*Snapshot)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scope.Err() != nil {
		return false
	}
	fn(&b.snap)
	return true
}

// afterMutation runs the re-fetch that follows every successful write.
func (b *Board) afterMutation(ctx context.Context, t *model.Ticket) (*model.Ticket, error) {
	if b.scope.Err() != nil {
		return nil, errs.ErrScopeClosed
	}
	if err := b.resync(ctx); err != nil {
		if errors.Is(err, errs.ErrScopeClosed) {
			return nil, err
		}
		log.Printf("portal: resync after ticket %d: %v", t.ID, err)
		return t, &ResyncError{Err: err}
	}
	return t, nil
}

// Create validates the form locally, posts it and resynchronizes. The new ticket is open.
func (b *Board) Create(ctx context.Context, form TicketForm) (*model.Ticket, error) {
	req, err := form.Request()
	if err != nil {
		return nil, err
	}
	if err := b.acquire(ControlCreate); err != nil {
		return nil, err
	}
	defer b.release(ControlCreate)

	ctx, done := b.bind(ctx)
	defer done()
	t, err := b.api.CreateTicket(ctx, b.sess, req)
	if err != nil {
		return nil, b.scopeErr(err)
	}
	return b.afterMutation(ctx, t)
}

// Edit updates description, count and payload of a ticket in the current snapshot.
// It never changes status. Invalid payload JSON blocks the request.
func (b *Board) Edit(ctx context.Context, id uint64, form EditForm) (*model.Ticket, error) {
	req, err := form.Request()
	if err != nil {
		return nil, err
	}
	if _, ok := b.Snapshot().Find(id); !ok {
		return nil, errs.ErrTicketNotFound
	}
	if err := b.acquire(ControlEdit); err != nil {
		return nil, err
	}
	defer b.release(ControlEdit)

	ctx, done := b.bind(ctx)
	defer done()
	t, err := b.api.UpdateTicket(ctx, b.sess, id, req)
	if err != nil {
		return nil, b.scopeErr(err)
	}
	return b.afterMutation(ctx, t)
}

// CloseTicket moves an open ticket to closed after explicit confirmation. Declining
// returns errs.ErrNotConfirmed without any request. There is no reopen.
func (b *Board) CloseTicket(ctx context.Context, id uint64, confirm Confirmer) (*model.Ticket, error) {
	cur, ok := b.Snapshot().Find(id)
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	if cur.Status.Terminal() {
		return nil, errs.ErrTicketClosed
	}
	if confirm == nil {
		return nil, errs.ErrNotConfirmed
	}
	yes, err := confirm.Confirm(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	if !yes {
		return nil, errs.ErrNotConfirmed
	}
	if err := b.acquire(ControlClose); err != nil {
		return nil, err
	}
	defer b.release(ControlClose)

	ctx, done := b.bind(ctx)
	defer done()
	t, err := b.api.UpdateTicket(ctx, b.sess, id, closeRequest())
	if err != nil {
		return nil, b.scopeErr(err)
	}
	return b.afterMutation(ctx, t)
}
