package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raksha360/hospital-portal/internal/portal"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log the hospital in and remember the session",
	RunE:  withEnv(runLogin),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new hospital account and log it in",
	RunE:  withEnv(runSignup),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  withEnv(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in hospital",
	RunE:  withEnv(runWhoami),
}

func init() {
	loginCmd.Flags().String("email", "", "hospital email")
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")

	signupCmd.Flags().String("name", "", "hospital name")
	signupCmd.Flags().String("email", "", "hospital email")
	signupCmd.Flags().String("city", "", "city")
	signupCmd.Flags().String("password", "", "password, at least 6 characters (prompted when omitted)")
}

// prompt reads one line from in when value is empty.
func prompt(cmd *cobra.Command, in *bufio.Reader, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(cmd.OutOrStdout(), label+": ")
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, e *env, _ []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	var err error
	if email, err = prompt(cmd, in, "Email", email); err != nil {
		return err
	}
	if password, err = prompt(cmd, in, "Password", password); err != nil {
		return err
	}
	sess, err := e.accounts.Login(cmd.Context(), email, password)
	if err != nil {
		return userError(err, "Login failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.render.Success("Logged in as "+firstNonBlank(sess.HospitalName, sess.HospitalEmail, email)))
	return nil
}

func runSignup(cmd *cobra.Command, e *env, _ []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	var req portal.RegisterRequest
	req.Name, _ = cmd.Flags().GetString("name")
	req.Email, _ = cmd.Flags().GetString("email")
	req.City, _ = cmd.Flags().GetString("city")
	req.Password, _ = cmd.Flags().GetString("password")
	var err error
	if req.Name, err = prompt(cmd, in, "Hospital name", req.Name); err != nil {
		return err
	}
	if req.Email, err = prompt(cmd, in, "Email", req.Email); err != nil {
		return err
	}
	if req.Password, err = prompt(cmd, in, "Password", req.Password); err != nil {
		return err
	}
	sess, err := e.accounts.Signup(cmd.Context(), req)
	var loginErr *portal.SignupLoginError
	if errors.As(err, &loginErr) {
		return fmt.Errorf("Account created, but logging in failed: %s. Try hospital-portal login", userError(loginErr.Err, "Login failed"))
	}
	if err != nil {
		return userError(err, "Signup failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.render.Success("Welcome, "+sess.HospitalName))
	return nil
}

func runLogout(cmd *cobra.Command, e *env, _ []string) error {
	if err := e.accounts.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, e *env, _ []string) error {
	sess, err := e.requireSession(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, firstNonBlank(sess.HospitalName, "(unnamed hospital)"))
	if sess.HospitalEmail != "" {
		fmt.Fprintln(out, sess.HospitalEmail)
	}
	if sess.HospitalID != 0 {
		fmt.Fprintf(out, "Hospital ID %d\n", sess.HospitalID)
	}
	fmt.Fprintln(out, "API "+e.cfg.Portal.APIURL)
	return nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
