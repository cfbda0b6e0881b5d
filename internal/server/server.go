package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/interviewace/apiserver/config"
	"github.com/interviewace/apiserver/internal/db"
	"github.com/interviewace/apiserver/internal/events"
	"github.com/interviewace/apiserver/internal/handlers"
	"github.com/interviewace/apiserver/internal/metrics"
	"github.com/interviewace/apiserver/internal/mq"
	"github.com/interviewace/apiserver/internal/services"
	"github.com/interviewace/apiserver/internal/storage"
	"github.com/interviewace/apiserver/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultRateLimitRPS = 10
const defaultRateLimitBurst = 30

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objectStore, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	broker, err := openBroker(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var publisher events.Publisher
	if broker != nil {
		publisher = events.NewMQPublisher(broker, cfg.MQ.Topic, slog.Default())
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	userRepo := store.NewUserRepository(dbConn)
	resumeRepo := store.NewResumeRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)

	userService := services.NewUserService(userRepo)
	resumeService := services.NewResumeService(resumeRepo, objectStore)
	sessionService := services.NewSessionService(sessionRepo, resumeRepo, publisher, collector)

	authMiddleware := handlers.RequireAuth(jwtSecret, userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		collector.Middleware,
		handlers.RateLimit(defaultRateLimitRPS, defaultRateLimitBurst),
	)
	router.Get("/health", handlers.Health)
	router.Method(http.MethodGet, "/metrics", metrics.Handler(registry))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret, cfg.JWT.TokenTTL)
	})
	router.Route("/resumes", func(r chi.Router) {
		handlers.ResumeRouter(r, resumeService, authMiddleware)
	})
	router.Route("/sessions", func(r chi.Router) {
		handlers.SessionRouter(r, sessionService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// openStorage selects the object storage backend for resume files.
// An empty backend disables file uploads rather than failing startup.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		st := storage.NewStorage(client)
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		return st, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs storage: %w", err)
		}
		st := storage.NewStorage(client)
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("gcs storage: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// openBroker selects the message broker for session events.
// An empty backend disables event publishing rather than failing startup.
func openBroker(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq broker: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub broker: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
