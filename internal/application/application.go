package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/raksha360/hospital-portal/internal/auth"
	"github.com/raksha360/hospital-portal/internal/config"
	"github.com/raksha360/hospital-portal/internal/database"
	"github.com/raksha360/hospital-portal/internal/events"
	"github.com/raksha360/hospital-portal/internal/handler"
	"github.com/raksha360/hospital-portal/internal/metrics"
	"github.com/raksha360/hospital-portal/internal/router"
	"github.com/raksha360/hospital-portal/internal/service"
)

type stores struct {
	tickets   service.TicketServicer
	hospitals service.HospitalServicer
	records   service.RecordServicer
	ping      func(ctx context.Context) error
	close     func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.Stub.Store == "memory" {
		m := service.NewMemoryStore(service.SeedDoctors...)
		log.Println("store: in-memory, data is lost on exit")
		return &stores{tickets: m, hospitals: m, records: m, close: func() error { return nil }}, nil
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &stores{
		tickets:   service.NewTicketService(db),
		hospitals: service.NewHospitalService(db),
		records:   service.NewRecordService(db),
		ping:      sqlDB.PingContext,
		close:     sqlDB.Close,
	}, nil
}

// API is the contract stub the portal talks to.
type API struct {
	cfg     *config.Config
	httpSrv *http.Server
	stores  *stores
	events  events.Publisher
}

func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	scope := service.CountOpen
	if cfg.Stub.CountScope == "all" {
		scope = service.CountAll
	}

	pub := events.FromConfig(cfg)
	m := metrics.New()
	tokens := auth.NewTokens(cfg.Stub.JWTSecret, cfg.Stub.TokenTTL)

	h := router.New(router.Deps{
		Auth:     handler.NewAuthHandler(st.hospitals, tokens),
		Hospital: handler.NewHospitalHandler(st.hospitals),
		Tickets:  handler.NewTicketHandler(st.tickets, pub, m, scope),
		Records:  handler.NewRecordsHandler(st.records),
		Tokens:   tokens,
		Metrics:  m,
		Ready:    handler.Ready(st.ping),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, httpSrv: httpSrv, stores: st, events: pub}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.Stub.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.Stub.HTTPPort
	log.Printf("HTTP server listening on %s", a.httpSrv.Addr)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Swagger spec:  %s/swagger/openapi.json", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  Metrics:       %s%s", base, router.PathMetrics)
	log.Printf("  Dashboard:     %s/hospital/dashboard (counting %s tickets)", base, a.cfg.Stub.CountScope)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.close()
		return fmt.Errorf("http: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.close()
	return nil
}

func (a *API) close() {
	if err := a.events.Close(); err != nil {
		log.Printf("events: close: %v", err)
	}
	if err := a.stores.close(); err != nil {
		log.Printf("database: close: %v", err)
	}
}
