package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appcart "github.com/photoworks/printshop/app/internal/application/cart"
	appcheckout "github.com/photoworks/printshop/app/internal/application/checkout"
	appfulfillment "github.com/photoworks/printshop/app/internal/application/fulfillment"
	appphoto "github.com/photoworks/printshop/app/internal/application/photo"
	appretention "github.com/photoworks/printshop/app/internal/application/retention"
	"github.com/photoworks/printshop/app/internal/config"
	domcart "github.com/photoworks/printshop/app/internal/domain/cart"
	domcatalog "github.com/photoworks/printshop/app/internal/domain/catalog"
	domorder "github.com/photoworks/printshop/app/internal/domain/order"
	domphoto "github.com/photoworks/printshop/app/internal/domain/photo"
	"github.com/photoworks/printshop/app/internal/infrastructure/cleanup"
	"github.com/photoworks/printshop/app/internal/infrastructure/id"
	"github.com/photoworks/printshop/app/internal/infrastructure/memory"
	"github.com/photoworks/printshop/app/internal/infrastructure/observability/oteltrace"
	"github.com/photoworks/printshop/app/internal/infrastructure/observability/prometrics"
	"github.com/photoworks/printshop/app/internal/infrastructure/observability/telemetry"
	"github.com/photoworks/printshop/app/internal/infrastructure/observability/zaplogger"
	orderworker "github.com/photoworks/printshop/app/internal/infrastructure/order/worker"
	"github.com/photoworks/printshop/app/internal/infrastructure/outbox"
	"github.com/photoworks/printshop/app/internal/infrastructure/postgres"
	redisstore "github.com/photoworks/printshop/app/internal/infrastructure/redis"
	"github.com/photoworks/printshop/app/internal/infrastructure/taxes"
	"github.com/photoworks/printshop/app/internal/observability"
	httppresentation "github.com/photoworks/printshop/app/internal/presentation/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	baseLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)

	tel := buildTelemetry(baseLogger, cfg.ServiceName)

	// Persistence: Postgres when configured, otherwise in-process memory.
	var (
		orders   domorder.Repository
		photos   domphoto.Repository
		seqStore id.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer func() { _ = db.Close() }()
		if err := postgres.RunMigrations(db, cfg.MigrationsDir); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		orders = postgres.NewOrderStore(db)
		photos = postgres.NewPhotoStore(db)
		seqStore = postgres.NewSequenceStore(db)
	} else {
		orders = memory.NewOrderRepository()
		photos = memory.NewPhotoRepository()
		seqStore = memory.NewSequenceStore()
	}

	var carts domcart.Repository
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = client.Close() }()
		carts = redisstore.NewCartStore(client)
	} else {
		carts = memory.NewCartRepository()
	}

	catalogRepo := memory.NewPrintSizeRepository()
	if err := seedCatalog(catalogRepo); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	taxLookup := taxes.NewLookup(taxes.Table{DefaultRate: cfg.DefaultTaxRate})
	if cfg.TaxTablePath != "" {
		taxLookup, err = taxes.LoadFile(cfg.TaxTablePath)
		if err != nil {
			log.Fatalf("load tax table: %v", err)
		}
	}

	blobs := memory.NewBlobStore()
	idGenerator := id.NewUUIDGenerator()
	sequencer := id.NewSequencer(seqStore)

	bus := outbox.NewBus(baseLogger, tel)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	tracker := appretention.NewTracker(photos, orders, cfg.RetentionBuffer, baseLogger)
	photoService := appphoto.NewService(photos, blobs, idGenerator, baseLogger)
	cartService := appcart.NewService(carts, photos, catalogRepo, idGenerator, cfg.DefaultTaxRate, cfg.CartTTL, baseLogger)
	checkoutUC := appcheckout.NewUseCase(orders, carts, tracker, sequencer, idGenerator, taxLookup, bus, tel)
	fulfillmentService := appfulfillment.NewService(orders, tracker, bus, baseLogger)

	orderWorker := orderworker.New(orders, bus, baseLogger)
	orderWorker.Start()

	executor := cleanup.NewExecutor(photos, blobs, bus, cfg.CleanupSchedule, baseLogger, tel.Metrics())
	if err := executor.Start(); err != nil {
		log.Fatalf("start cleanup executor: %v", err)
	}
	defer executor.Stop()

	handler := httppresentation.NewHandler(
		photoService, cartService, checkoutUC, fulfillmentService,
		tracker, photos, baseLogger, tel,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

func buildTelemetry(logger observability.Logger, serviceName string) observability.Observability {
	registry := prometrics.New(serviceName, "")

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome"),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status"),
		observability.MPhotosCleaned: registry.Counter(
			string(observability.MPhotosCleaned),
			"Photos physically deleted by the cleanup executor."),
		observability.MCleanupStorageFreed: registry.Counter(
			string(observability.MCleanupStorageFreed),
			"Bytes of photo storage reclaimed by the cleanup executor."),
		observability.MExternalRequests: registry.Counter(
			string(observability.MExternalRequests),
			"Calls to external collaborators (event bus, providers).",
			"peer", "endpoint", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case"),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status"),
		observability.MExternalRequestDuration: registry.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of external calls in seconds.",
			prometheus.DefBuckets,
			"peer", "endpoint"),
	}

	return telemetry.New(oteltrace.New("printshop"), logger, counters, histograms)
}

// seedCatalog installs the launch print formats. Codes and prices match the
// storefront's published price card.
func seedCatalog(repo domcatalog.Repository) error {
	sizes := []struct {
		code  string
		name  string
		price float64
	}{
		{"4x6", "4\" x 6\" Standard", 0.29},
		{"5x7", "5\" x 7\" Classic", 0.99},
		{"8x10", "8\" x 10\" Large", 3.99},
		{"16x20", "16\" x 20\" Poster", 17.99},
	}
	for _, s := range sizes {
		size, err := domcatalog.New(s.code, s.name, s.price)
		if err != nil {
			return err
		}
		if err := repo.Save(context.Background(), size); err != nil {
			return err
		}
	}
	return nil
}
