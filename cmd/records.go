package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raksha360/hospital-portal/internal/portal"
)

var doctorsCmd = &cobra.Command{
	Use:   "doctors",
	Short: "List doctors available for onboarding, with WhatsApp links",
	RunE:  withEnv(runDoctors),
}

var admitCmd = &cobra.Command{
	Use:   "admit",
	Short: "Record a patient admission",
	RunE:  withEnv(runAdmit),
}

var billCmd = &cobra.Command{
	Use:     "bill",
	Short:   "Record a bill from one or more items",
	Example: `  hospital-portal bill --item "Room charges=1500" --item "Medicines=249.50"`,
	RunE:    withEnv(runBill),
}

func init() {
	admitCmd.Flags().String("name", "", "patient name")
	admitCmd.Flags().String("age", "", "patient age")
	admitCmd.Flags().String("admitted", "", "admission date, YYYY-MM-DD")
	admitCmd.Flags().String("discharged", "", "discharge date, YYYY-MM-DD")

	billCmd.Flags().StringArray("item", nil, `billing item as "description=amount", repeatable`)
}

func runDoctors(cmd *cobra.Command, e *env, _ []string) error {
	docs, err := e.client.Doctors(cmd.Context())
	if err != nil {
		return userError(err, "Failed to load doctors")
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.render.Doctors(docs))
	return nil
}

func runAdmit(cmd *cobra.Command, e *env, _ []string) error {
	f := cmd.Flags()
	var form portal.AdmissionForm
	form.Name, _ = f.GetString("name")
	form.Age, _ = f.GetString("age")
	form.AdmissionDate, _ = f.GetString("admitted")
	form.DischargeDate, _ = f.GetString("discharged")

	sess, err := e.requireSession(cmd.Context())
	if err != nil {
		return err
	}
	req, err := form.Request(sess.HospitalID)
	if err != nil {
		return userError(err, "Invalid admission")
	}
	if err := e.client.CreateAdmission(cmd.Context(), sess, req); err != nil {
		return userError(err, "Failed to record admission")
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.render.Success("Patient admitted: "+req.Name))
	return nil
}

// splitItem reads "description=amount"; the last '=' separates the amount.
func splitItem(s string) portal.BillingLine {
	i := strings.LastIndex(s, "=")
	if i < 0 {
		return portal.BillingLine{Description: s}
	}
	return portal.BillingLine{Description: s[:i], Amount: s[i+1:]}
}

func runBill(cmd *cobra.Command, e *env, _ []string) error {
	raw, _ := cmd.Flags().GetStringArray("item")
	lines := make([]portal.BillingLine, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, splitItem(r))
	}

	sess, err := e.requireSession(cmd.Context())
	if err != nil {
		return err
	}
	req, err := portal.BillingFromLines(sess.HospitalID, lines)
	if err != nil {
		return userError(err, "Invalid bill")
	}
	if err := e.client.CreateBilling(cmd.Context(), sess, req); err != nil {
		return userError(err, "Failed to record bill")
	}
	out := cmd.OutOrStdout()
	for _, it := range req.Items {
		fmt.Fprintf(out, "  %-30s %10.2f\n", it.Description, it.Amount)
	}
	fmt.Fprintln(out, e.render.Success(fmt.Sprintf("Billing recorded! Total: ₹%.2f", req.Total)))
	return nil
}
