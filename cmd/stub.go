package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/raksha360/hospital-portal/internal/application"
	"github.com/raksha360/hospital-portal/internal/config"
	"github.com/raksha360/hospital-portal/internal/database"
	"github.com/raksha360/hospital-portal/internal/events"
	"github.com/raksha360/hospital-portal/internal/service"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run the hospital API contract stub for local development",
}

var stubServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the hospital API (STUB_STORE=postgres|memory)",
	RunE:  runStubServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the migrations built into this binary",
	RunE:  runMigrateList,
}

var republishCmd = &cobra.Command{
	Use:   "republish-events",
	Short: "Publish an event for every stored ticket to the configured brokers",
	RunE:  runRepublish,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateListCmd)
	stubCmd.AddCommand(stubServeCmd, migrateCmd, republishCmd)
}

func loadStubConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func runStubServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadStubConfig()
	if err != nil {
		return err
	}
	app, err := application.NewAPI(cfg)
	if err != nil {
		return err
	}
	return app.Run(cmd.Context())
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadStubConfig()
	if err != nil {
		return err
	}
	if cfg.Stub.Store != "postgres" {
		return errors.New("migrate: STUB_STORE is not postgres, nothing to migrate")
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("migrate up: ok")
	return nil
}

func runMigrateList(cmd *cobra.Command, _ []string) error {
	names, err := database.Migrations()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runRepublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadStubConfig()
	if err != nil {
		return err
	}
	if cfg.Stub.Store != "postgres" {
		return errors.New("republish-events: needs STUB_STORE=postgres")
	}
	pub := events.FromConfig(cfg)
	if _, ok := pub.(events.Nop); ok {
		log.Println("republish-events: neither KAFKA_BROKERS nor RABBITMQ_URL set, nothing to do")
		return nil
	}
	defer pub.Close()

	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()
	n, err := events.Republish(ctx, service.NewTicketService(db), pub)
	if err != nil {
		return fmt.Errorf("republish-events: after %d events: %w", n, err)
	}
	log.Printf("republish-events: done, sent %d events", n)
	return nil
}
