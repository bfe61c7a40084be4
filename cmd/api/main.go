package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/MatYouKy/mavinci-reserve/internal/app"
	"github.com/MatYouKy/mavinci-reserve/internal/clock"
	"github.com/MatYouKy/mavinci-reserve/internal/config"
	"github.com/MatYouKy/mavinci-reserve/internal/metrics"
	"github.com/MatYouKy/mavinci-reserve/internal/storage/postgres"
	transporthttp "github.com/MatYouKy/mavinci-reserve/internal/transport/http"
	"github.com/MatYouKy/mavinci-reserve/migrations"
)

var configFile = flag.String("config", "", "path to configuration file")

func main() {
	flag.Parse()
	logger := log.Default()

	cfg, err := config.Load(*configFile, logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	collector := metrics.NewCollector()
	clk := clock.NewSystem()

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(reservationRepo, clk,
		app.WithLogger(logger),
		app.WithRecorder(collector),
	)
	catalogRepo := postgres.NewCatalogRepository(pool)
	catalogSvc := app.NewCatalogService(catalogRepo, clk)
	attachmentRepo := postgres.NewAttachmentRepository(pool)
	attachmentSvc := app.NewAttachmentService(attachmentRepo, catalogSvc, reservationSvc, clk)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/reservations", transporthttp.HandleReservations(reservationSvc))
	mux.Handle("/reservations/", transporthttp.HandleReservationActions(reservationSvc))
	mux.Handle("/availability/check", transporthttp.HandleCheckAvailability(reservationSvc))
	mux.Handle("/catalog/items", transporthttp.HandleCatalogItems(catalogSvc))
	mux.Handle("/catalog/items/", transporthttp.HandleCatalogItemActions(catalogSvc))
	mux.Handle("/catalog/kits", transporthttp.HandleCatalogKits(catalogSvc))
	mux.Handle("/catalog/kits/", transporthttp.HandleCatalogKitActions(catalogSvc))
	mux.Handle("/attachments", transporthttp.HandleAttachments(attachmentSvc))
	mux.Handle("/attachments/", transporthttp.HandleAttachmentActions(attachmentSvc))
	mux.Handle("/products/", transporthttp.HandleProducts(attachmentSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	handler := transporthttp.Instrument(
		transporthttp.RateLimit(
			transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger),
			limiter,
		),
		collector,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: collector.Handler(),
	}

	log.Printf("api listening on :%s", cfg.Port)
	log.Printf("metrics listening on :%s", cfg.MetricsPort)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
