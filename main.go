package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	alarmapp "scada-cloud/internal/alarms/application"
	alarmrepo "scada-cloud/internal/alarms/infrastructure/postgres"
	alarmhttp "scada-cloud/internal/alarms/interfaces/http"
	analyticsapp "scada-cloud/internal/analytics/application"
	analyticsrepo "scada-cloud/internal/analytics/infrastructure/postgres"
	analyticshttp "scada-cloud/internal/analytics/interfaces/http"
	"scada-cloud/internal/auth"
	catalogrepo "scada-cloud/internal/catalog/infrastructure/postgres"
	commandapp "scada-cloud/internal/commands/application"
	commandrepo "scada-cloud/internal/commands/infrastructure/postgres"
	commandhttp "scada-cloud/internal/commands/interfaces/http"
	"scada-cloud/internal/eventing"
	"scada-cloud/internal/observability/metrics"
	readingrepo "scada-cloud/internal/readings/infrastructure/postgres"
	readinghttp "scada-cloud/internal/readings/interfaces/http"
	"scada-cloud/internal/stream"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	stationRepo := catalogrepo.NewStationRepository(db)
	deviceRepo := catalogrepo.NewDeviceRepository(db)
	pointRepo := catalogrepo.NewDataPointRepository(db)
	readingRepo := readingrepo.NewReadingRepository(db)
	bucketRepo := analyticsrepo.NewBucketRepository(db)
	alarmRepo := alarmrepo.NewAlarmRepository(db)
	commandRepo := commandrepo.NewCommandRepository(db)

	bus := eventing.NewInMemoryBus()

	gateway := stream.NewGateway(logger)
	gateway.AttachBus(bus)

	aggregationService, err := analyticsapp.NewService(bucketRepo, readingRepo, pointRepo, logger)
	if err != nil {
		logger.Fatalf("aggregation service error: %v", err)
	}
	schedulerCfg, err := analyticsapp.LoadSchedulerConfig()
	if err != nil {
		logger.Fatalf("scheduler config error: %v", err)
	}
	scheduler, err := analyticsapp.NewScheduler(aggregationService, deviceRepo, schedulerCfg, logger)
	if err != nil {
		logger.Fatalf("scheduler error: %v", err)
	}
	go scheduler.Start(context.Background())

	alarmService, err := alarmapp.NewService(alarmRepo, stationRepo, deviceRepo, pointRepo, bus)
	if err != nil {
		logger.Fatalf("alarm service error: %v", err)
	}
	alarmHandler, err := alarmhttp.NewHandler(alarmService)
	if err != nil {
		logger.Fatalf("alarm handler error: %v", err)
	}

	commandService := commandapp.NewService(commandRepo, deviceRepo, commandapp.NewSimulatedDispatcher(), bus, logger)
	commandHandler, err := commandhttp.NewHandler(commandService)
	if err != nil {
		logger.Fatalf("command handler error: %v", err)
	}

	ingestHandler, err := readinghttp.NewIngestHandler(readingRepo, deviceRepo, bus, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	analyticsHandler, err := analyticshttp.NewHandler(aggregationService, bucketRepo)
	if err != nil {
		logger.Fatalf("analytics handler error: %v", err)
	}

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), []string{"/healthz", "/metrics", "/ingest/", "/ws"})
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestAuth.Wrap(ingestHandler))
	mux.HandleFunc("/api/v1/analytics/aggregate", analyticsHandler.HandleAggregate)
	mux.HandleFunc("/api/v1/analytics/buckets", analyticsHandler.HandleListBuckets)
	mux.HandleFunc("/api/v1/exports/buckets.xlsx", analyticsHandler.HandleExportBuckets)
	mux.HandleFunc("/api/v1/exports/buckets.pdf", analyticsHandler.HandleExportBuckets)
	mux.Handle("/api/v1/alarms", alarmHandler)
	mux.Handle("/api/v1/alarms/", alarmHandler)
	mux.Handle("/api/v1/commands", commandHandler)
	mux.Handle("/api/v1/commands/", commandHandler)
	mux.Handle("/ws", stream.NewHandler(gateway))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// The status wrapper does not implement http.Hijacker, which the
			// websocket upgrade needs.
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
