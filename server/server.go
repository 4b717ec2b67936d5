package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenant-integrity-service/config"
	"tenant-integrity-service/database"
	"tenant-integrity-service/handlers"
	"tenant-integrity-service/services"

	"github.com/gorilla/mux"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server

	db      *database.PostgresService
	logger  services.Logger
	metrics services.MetricsService
	health  *services.HealthService

	integrityHandler *handlers.IntegrityHandler
}

// NewServer creates a new server instance and wires the integrity
// pipeline over one PostgreSQL pool
func NewServer(cfg *config.Config) (*Server, error) {
	logger := services.NewStructuredLogger(services.ParseLogLevel(cfg.Logging.Level), os.Stdout)

	db, err := database.NewPostgresService(&database.PostgresConfig{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		Database:    cfg.Database.Database,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    int32(cfg.Database.MaxConns),
		MinConns:    int32(cfg.Database.MinConns),
		MaxConnLife: time.Hour,
		MaxConnIdle: 30 * time.Minute,
		HealthCheck: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	stdlibDB, err := db.StdlibDB()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open store handle: %w", err)
	}

	checks, err := config.LoadChecks(cfg.Integrity.ChecksFile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load check descriptors: %w", err)
	}

	metrics := services.NewInMemoryMetrics()
	store := database.NewPostgresStore(stdlibDB)
	integrity := services.NewIntegrityService(store, services.IntegrityServiceOptions{
		DefaultPreviewLimit: cfg.Integrity.DefaultPreviewLimit,
		MaxPreviewLimit:     cfg.Integrity.MaxPreviewLimit,
		MaxConcurrentChecks: cfg.Integrity.MaxConcurrentChecks,
		CheckTimeout:        cfg.Integrity.CheckTimeout,
		MismatchDescriptors: checks.Mismatches,
		OrphanDescriptors:   checks.Orphans,
	}, services.NewLoggerAuditSink(logger), metrics, logger)

	health := services.NewHealthService(logger)
	health.RegisterChecker(services.NewDatabaseHealthChecker("database", db))
	health.RegisterChecker(services.NewMetricsHealthChecker("metrics", metrics))

	server := &Server{
		config:           cfg,
		router:           mux.NewRouter(),
		db:               db,
		logger:           logger,
		metrics:          metrics,
		health:           health,
		integrityHandler: handlers.NewIntegrityHandler(integrity),
	}
	server.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	server.setupRoutes()
	server.setupMiddleware()

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {

	// API version prefix
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health and monitoring
	api.HandleFunc("/health", s.healthCheck).Methods("GET")
	api.HandleFunc("/metrics", s.metricsHandler).Methods("GET")

	// Integrity routes
	api.HandleFunc("/integrity/health", s.integrityHandler.GetGlobalHealth).Methods("GET")
	api.HandleFunc("/integrity/tenants/{id}/health", s.integrityHandler.GetTenantHealth).Methods("GET")
	api.HandleFunc("/integrity/repairs/preview", s.integrityHandler.GenerateRepairPreview).Methods("POST")
	api.HandleFunc("/integrity/repairs/apply", s.integrityHandler.ApplyRepairs).Methods("POST")
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.contentTypeMiddleware)
	s.router.Use(s.metricsMiddleware)
}

// Start starts the HTTP server and blocks until an interrupt
func (s *Server) Start() error {
	s.logger.Info("Starting server", services.String("port", s.config.Server.Port))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info("Shutting down server")
	return s.Shutdown()
}

// Shutdown gracefully shuts down the server and closes the pool
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.db.Close()
	return err
}

// healthCheck reports process, database, and metrics component health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	systemHealth := s.health.CheckHealth(r.Context())

	statusCode := http.StatusOK
	if systemHealth.Status == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(systemHealth); err != nil {
		log.Printf("Failed to encode health response: %v", err)
	}
}

// metricsHandler handles metrics requests
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	metrics := s.metrics.GetMetrics()

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(metrics); err != nil {
		log.Printf("Failed to encode metrics: %v", err)
	}
}
