package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/portal"
	"github.com/raksha360/hospital-portal/internal/session"
	"github.com/raksha360/hospital-portal/internal/view"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the ticket counters and the open and recent ticket panels",
	RunE:  withEnv(runDashboard),
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Create, edit and close staffing, doctor, PRO and other requests",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every ticket, newest first",
	RunE:  withEnv(runTicketsList),
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one ticket with its payload",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTicketsShow),
}

var ticketsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Raise a new request",
	RunE:  withEnv(runTicketsCreate),
}

var ticketsEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit description, count or payload of a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTicketsEdit),
}

var ticketsCloseCmd = &cobra.Command{
	Use:   "close ID",
	Short: "Close a ticket. This cannot be undone",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTicketsClose),
}

func init() {
	ticketsCreateCmd.Flags().String("type", "", "staff, doctor, pros or other")
	ticketsCreateCmd.Flags().String("count", "", "how many are needed")
	ticketsCreateCmd.Flags().String("location", "", "where they are needed")
	ticketsCreateCmd.Flags().String("salary", "", "offered salary")
	ticketsCreateCmd.Flags().String("notes", "", "free text")
	_ = ticketsCreateCmd.MarkFlagRequired("type")

	ticketsEditCmd.Flags().String("description", "", "new description")
	ticketsEditCmd.Flags().String("count", "", "new count")
	ticketsEditCmd.Flags().String("payload", "", "new payload, a JSON object")

	ticketsCloseCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	ticketsCmd.AddCommand(ticketsListCmd, ticketsShowCmd, ticketsCreateCmd, ticketsEditCmd, ticketsCloseCmd)
}

// openBoard opens a board for the stored session and fetches the first snapshot.
func openBoard(ctx context.Context, e *env) (*portal.Board, *session.Session, error) {
	sess, err := e.requireSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	board := portal.NewBoard(ctx, e.client, sess)
	if err := board.Refresh(ctx); err != nil {
		board.Close()
		return nil, nil, userError(err, "Failed to load tickets")
	}
	return board, sess, nil
}

func parseTicketID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%q is not a ticket id", arg)
	}
	return id, nil
}

func runDashboard(cmd *cobra.Command, e *env, _ []string) error {
	board, who, err := openBoard(cmd.Context(), e)
	if err != nil {
		return err
	}
	defer board.Close()
	snap := board.Snapshot()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, e.render.Dashboard(snap, who.HospitalName))
	fmt.Fprintln(out, "\nUpdated "+view.Stamp(snap.CountsFetchedAt))
	return nil
}

func runTicketsList(cmd *cobra.Command, e *env, _ []string) error {
	board, _, err := openBoard(cmd.Context(), e)
	if err != nil {
		return err
	}
	defer board.Close()
	fmt.Fprintln(cmd.OutOrStdout(), e.render.Panel(portal.RecentPanel(board.Snapshot())))
	return nil
}

func runTicketsShow(cmd *cobra.Command, e *env, args []string) error {
	id, err := parseTicketID(args[0])
	if err != nil {
		return err
	}
	board, _, err := openBoard(cmd.Context(), e)
	if err != nil {
		return err
	}
	defer board.Close()
	t, ok := board.Snapshot().Find(id)
	if !ok {
		return fmt.Errorf("Ticket #%d not found", id)
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.render.TicketDetail(t))
	return nil
}

// reportMutation prints the outcome of a create, edit or close. A failed re-fetch
// after a successful save is a warning, not a failure.
func reportMutation(cmd *cobra.Command, e *env, board *portal.Board, verb string, t *model.Ticket, err error) error {
	var resync *portal.ResyncError
	switch {
	case errors.As(err, &resync):
		fmt.Fprintln(cmd.OutOrStdout(), e.render.Success(verb+" "+view.TicketTitle(*t)))
		fmt.Fprintln(cmd.ErrOrStderr(), e.render.Error("Saved, but refreshing the dashboard failed: "+userError(resync.Err, "Server error").Error()))
		return nil
	case err != nil:
		return userError(err, verb+" failed")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, e.render.Success(verb+" "+view.TicketTitle(*t)))
	fmt.Fprintln(out)
	fmt.Fprintln(out, e.render.StatsCards(board.Snapshot().Counts))
	return nil
}

func runTicketsCreate(cmd *cobra.Command, e *env, _ []string) error {
	f := cmd.Flags()
	form := portal.TicketForm{}
	form.Selector, _ = f.GetString("type")
	form.Count, _ = f.GetString("count")
	form.Fields.Location, _ = f.GetString("location")
	form.Fields.OfferedSalary, _ = f.GetString("salary")
	form.Fields.Notes, _ = f.GetString("notes")
	// Local validation runs before any request.
	if _, err := form.Request(); err != nil {
		return userError(err, "Invalid request")
	}

	board, _, err := openBoard(cmd.Context(), e)
	if err != nil {
		return err
	}
	defer board.Close()
	t, err := board.Create(cmd.Context(), form)
	return reportMutation(cmd, e, board, "Created", t, err)
}

func runTicketsEdit(cmd *cobra.Command, e *env, args []string) error {
	id, err := parseTicketID(args[0])
	if err != nil {
		return err
	}
	board, _, err := openBoard(cmd.Context(), e)
	if err != nil {
		return err
	}
	defer board.Close()
	cur, ok := board.Snapshot().Find(id)
	if !ok {
		return fmt.Errorf("Ticket #%d not found", id)
	}
	f := cmd.Flags()
	form := portal.NewEditForm(cur)
	if f.Changed("description") {
		form.Description, _ = f.GetString("description")
	}
	if f.Changed("count") {
		form.Count, _ = f.GetString("count")
	}
	if f.Changed("payload") {
		form.PayloadText, _ = f.GetString("payload")
	}
	t, err := board.Edit(cmd.Context(), id, form)
	return reportMutation(cmd, e, board, "Updated", t, err)
}

func runTicketsClose(cmd *cobra.Command, e *env, args []string) error {
	id, err := parseTicketID(args[0])
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")
	board, _, err := openBoard(cmd.Context(), e)
	if err != nil {
		return err
	}
	defer board.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	confirm := portal.ConfirmFunc(func(ctx context.Context, t model.Ticket) (bool, error) {
		if yes {
			return true, nil
		}
		answer, err := prompt(cmd, in, "Close "+view.TicketTitle(t)+"? This cannot be undone [y/N]", "")
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	})
	t, err := board.CloseTicket(cmd.Context(), id, confirm)
	return reportMutation(cmd, e, board, "Closed", t, err)
}
