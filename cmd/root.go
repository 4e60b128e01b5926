package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/raksha360/hospital-portal/internal/config"
	"github.com/raksha360/hospital-portal/internal/errs"
	"github.com/raksha360/hospital-portal/internal/portal"
	"github.com/raksha360/hospital-portal/internal/session"
	"github.com/raksha360/hospital-portal/internal/view"
)

var rootCmd = &cobra.Command{
	Use:           "hospital-portal",
	Short:         "Hospital portal: staffing, doctor and PRO tickets, admissions and billing",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var apiURL string

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, view.NewRenderer(view.DefaultTheme, termWidth()).Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "hospital API base URL (overrides PORTAL_API_URL)")
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(dashboardCmd, ticketsCmd)
	rootCmd.AddCommand(doctorsCmd, admitCmd, billCmd)
	rootCmd.AddCommand(stubCmd)
}

// env is what every portal command works with.
type env struct {
	cfg      *config.Config
	client   *portal.Client
	accounts *portal.Accounts
	render   view.Renderer
	close    func()
}

func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.Portal.APIURL = apiURL
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	client := portal.NewClient(cfg.Portal.APIURL, cfg.Portal.Timeout,
		portal.WithRegisterTimeout(cfg.Portal.RegisterTimeout))

	var store session.Store
	closeFn := func() {}
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPass,
		})
		store = session.NewRedisStore(rdb, cfg.Session.RedisKey)
		closeFn = func() { _ = rdb.Close() }
	default:
		store = session.NewFileStore(cfg.Session.Path)
	}
	return &env{
		cfg:      cfg,
		client:   client,
		accounts: portal.NewAccounts(client, store),
		render:   view.NewRenderer(view.DefaultTheme, termWidth()),
		close:    closeFn,
	}, nil
}

// withEnv builds the env for one command run and always releases it.
func withEnv(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, e, args)
	}
}

// requireSession loads the stored login or explains how to get one.
func (e *env) requireSession(ctx context.Context) (*session.Session, error) {
	sess, err := e.accounts.Current(ctx)
	if errors.Is(err, errs.ErrNoSession) {
		return nil, errors.New("Please log in first: hospital-portal login --email <email>")
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// userError turns any portal error into the one-line message shown to the user.
func userError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return errors.New(errs.Message(err, fallback))
}

func termWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 100
}
