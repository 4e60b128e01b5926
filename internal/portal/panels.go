package portal

import (
	"fmt"

	"github.com/raksha360/hospital-portal/internal/model"
)

// OpenPanelLimit caps the open tickets panel. It is a display cap only; the total
// is always shown next to it.
const OpenPanelLimit = 6

type Panel struct {
	Title   string
	Empty   string
	Tickets []model.Ticket
	Total   int
}

func (p Panel) Summary() string {
	return fmt.Sprintf("Showing %d of %d", len(p.Tickets), p.Total)
}

// OpenPanel shows the first OpenPanelLimit tickets of the last fetched collection.
func OpenPanel(s Snapshot) Panel {
	n := len(s.Tickets)
	if n > OpenPanelLimit {
		n = OpenPanelLimit
	}
	return Panel{Title: "Open Tickets", Empty: "No open tickets", Tickets: s.Tickets[:n:n], Total: len(s.Tickets)}
}

// RecentPanel shows the whole collection in the order the server returned it.
func RecentPanel(s Snapshot) Panel {
	return Panel{Title: "Recent Tickets", Empty: "No tickets yet", Tickets: s.Tickets, Total: len(s.Tickets)}
}
