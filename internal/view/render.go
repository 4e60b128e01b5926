package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/portal"
)

// NoValue stands in for a zero or missing count.
const NoValue = "—"

const timeLayout = "1/2/2006 3:04 PM"

// Renderer builds terminal output at a fixed width.
type Renderer struct {
	theme Theme
	width int
}

func NewRenderer(theme Theme, width int) Renderer {
	if width < 40 {
		width = 40
	}
	return Renderer{theme: theme, width: width}
}

// CountText renders a dashboard count; zero reads as "—".
func CountText(n int64) string {
	if n <= 0 {
		return NoValue
	}
	return strconv.FormatInt(n, 10)
}

type statCard struct {
	title    string
	subtitle string
	value    int64
}

func cards(c model.DashboardCounts) []statCard {
	return []statCard{
		{"Public Relations Officers", "Request PR / Communications staff", c.PROCount},
		{"Staff", "Request permanent/temporary staff", c.StaffCount},
		{"Doctors", "Request visiting or full-time doctors", c.DoctorCount},
		{"Other Requests", "Procurement, onboarding and other requests", c.RequestCount},
	}
}

// StatsCards lays the four counters out two per row.
func (r Renderer) StatsCards(c model.DashboardCounts) string {
	cardWidth := r.width/2 - 2
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(r.theme.Accent).
		PaddingLeft(1).
		Width(cardWidth)
	titleStyle := lipgloss.NewStyle().Foreground(r.theme.FaintText)
	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(r.theme.NormalText)
	subStyle := lipgloss.NewStyle().Foreground(r.theme.FaintText)

	var rendered []string
	for _, card := range cards(c) {
		body := strings.Join([]string{
			titleStyle.Render(card.title),
			valueStyle.Render(CountText(card.value)),
			subStyle.Render(card.subtitle),
		}, "\n")
		rendered = append(rendered, style.Render(body))
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, rendered[0], "  ", rendered[1])
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, rendered[2], "  ", rendered[3])
	return top + "\n\n" + bottom
}

// TicketTitle is "TYPE — #id".
func TicketTitle(t model.Ticket) string {
	typ := string(t.Type)
	if typ == "" {
		typ = "REQ"
	}
	return fmt.Sprintf("%s — #%d", typ, t.ID)
}

// TicketSubtitle joins count and description with " • ".
func TicketSubtitle(t model.Ticket) string {
	var parts []string
	if t.Count != nil && *t.Count > 0 {
		parts = append(parts, fmt.Sprintf("Count: %d", *t.Count))
	}
	if t.Description != "" {
		parts = append(parts, t.Description)
	}
	if len(parts) == 0 {
		return "No details"
	}
	return strings.Join(parts, " • ")
}

func (r Renderer) status(s model.TicketStatus) string {
	if s == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(r.theme.StatusColor(s)).Render("[" + string(s) + "]")
}

func (r Renderer) ticketLine(t model.Ticket) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(r.theme.NormalText)
	faint := lipgloss.NewStyle().Foreground(r.theme.FaintText)

	head := titleStyle.Render(TicketTitle(t))
	if st := r.status(t.Status); st != "" {
		head += " " + st
	}
	if !t.CreatedAt.IsZero() {
		head += "  " + faint.Render(t.CreatedAt.Local().Format(timeLayout))
	}
	sub := faint.Width(r.width - 2).Render(TicketSubtitle(t))
	return head + "\n  " + sub
}

// Panel renders a ticket panel with its "Showing N of M" line.
func (r Renderer) Panel(p portal.Panel) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(r.theme.Accent).Render(p.Title)
	header += "  " + lipgloss.NewStyle().Foreground(r.theme.FaintText).Render(p.Summary())
	sep := lipgloss.NewStyle().Foreground(r.theme.BorderColor).Render(strings.Repeat("─", r.width))

	lines := []string{header, sep}
	if len(p.Tickets) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(r.theme.FaintText).Render(p.Empty))
	}
	for _, t := range p.Tickets {
		lines = append(lines, r.ticketLine(t))
	}
	return strings.Join(lines, "\n")
}

// Dashboard is the stats cards followed by both panels.
func (r Renderer) Dashboard(s portal.Snapshot, hospitalName string) string {
	var b strings.Builder
	if hospitalName != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(hospitalName))
		b.WriteString("\n\n")
	}
	b.WriteString(r.StatsCards(s.Counts))
	b.WriteString("\n\n")
	b.WriteString(r.Panel(portal.OpenPanel(s)))
	b.WriteString("\n\n")
	b.WriteString(r.Panel(portal.RecentPanel(s)))
	return b.String()
}

// PrettyPayload indents a JSON payload. Anything that does not parse is returned as is.
func PrettyPayload(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, p, "", "  "); err != nil {
		return string(p)
	}
	return buf.String()
}

// TicketDetail is the single-ticket view.
func (r Renderer) TicketDetail(t model.Ticket) string {
	faint := lipgloss.NewStyle().Foreground(r.theme.FaintText)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(r.theme.NormalText).Render(TicketTitle(t)) + " " + r.status(t.Status),
		TicketSubtitle(t),
	}
	if !t.CreatedAt.IsZero() {
		lines = append(lines, faint.Render("Created "+t.CreatedAt.Local().Format(timeLayout)))
	}
	if t.ClosedAt != nil {
		lines = append(lines, faint.Render("Closed "+t.ClosedAt.Local().Format(timeLayout)))
	}
	if p := PrettyPayload(t.Payload); p != "" {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(r.theme.BorderColor).
			Padding(0, 1)
		lines = append(lines, faint.Render("Payload"), box.Render(p))
	}
	return strings.Join(lines, "\n")
}

// WhatsAppLink opens a chat with the doctor prefilled with the onboarding message.
// Contacts are Indian numbers without the country code.
func WhatsAppLink(d model.Doctor) string {
	var digits strings.Builder
	for _, c := range d.Contact {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	return "https://wa.me/91" + digits.String() +
		"?text=Hello%20Dr.%20" + url.PathEscape(d.Name) +
		",%20our%20hospital%20would%20like%20to%20onboard%20you."
}

// Doctors renders the directory.
func (r Renderer) Doctors(docs []model.Doctor) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(r.theme.Accent).Render("Available Doctors")
	if len(docs) == 0 {
		return header + "\n" + lipgloss.NewStyle().Foreground(r.theme.FaintText).Render("No doctors available")
	}
	name := lipgloss.NewStyle().Bold(true)
	link := lipgloss.NewStyle().Foreground(r.theme.LinkColor)
	lines := []string{header}
	for _, d := range docs {
		lines = append(lines, "", name.Render(d.Name), d.Specialization+" - "+d.City)
		if d.Contact != "" {
			lines = append(lines, "WhatsApp: +91-"+d.Contact, link.Render(WhatsAppLink(d)))
		}
	}
	return strings.Join(lines, "\n")
}

// Error renders a failure line.
func (r Renderer) Error(msg string) string {
	return lipgloss.NewStyle().Foreground(r.theme.ErrorColor).Render(msg)
}

// Success renders a confirmation line.
func (r Renderer) Success(msg string) string {
	return lipgloss.NewStyle().Foreground(r.theme.LinkColor).Render(msg)
}

// Stamp formats a fetch time for the "updated" footer.
func Stamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(timeLayout)
}
