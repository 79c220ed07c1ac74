package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sebuszqo/TaskManager/internal/auth"
	"github.com/sebuszqo/TaskManager/internal/config"
	database "github.com/sebuszqo/TaskManager/internal/db"
	"github.com/sebuszqo/TaskManager/internal/logger"
	"github.com/sebuszqo/TaskManager/internal/metrics"
	"github.com/sebuszqo/TaskManager/internal/tasks/application"
	"github.com/sebuszqo/TaskManager/internal/tasks/domain"
	"github.com/sebuszqo/TaskManager/internal/tasks/infrastructure"
	"github.com/sebuszqo/TaskManager/internal/tasks/interfaces"
	"github.com/sebuszqo/TaskManager/internal/user"
)

const requestIDHeader = "X-Request-ID"

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		m := httpsnoop.CaptureMetrics(next, w, r)

		logger.Info("Request completed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("duration", m.Duration),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

type Server struct {
	router          *http.ServeMux
	categoryHandler *interfaces.CategoryHandler
	authMiddleware  func(http.Handler) http.Handler
	dbService       *database.DBService
	logger          *zap.Logger
}

func NewServer(categoryHandler *interfaces.CategoryHandler, authMiddleware func(http.Handler) http.Handler, dbService *database.DBService, logger *zap.Logger) *Server {
	return &Server{
		categoryHandler: categoryHandler,
		authMiddleware:  authMiddleware,
		dbService:       dbService,
		logger:          logger,
		router:          http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, "Path not found")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.dbService.Health(r.Context())
	if health["status"] != "up" {
		respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) RegisterRoutes() {
	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	publicRoutes.Handle("/api/", http.HandlerFunc(notFoundHandler))

	// Protected routes (bearer token, resolved to a user row)
	protectedRoutes := http.NewServeMux()
	protectedRoutes.Handle("GET /api/tasks/categories",
		s.authMiddleware(http.HandlerFunc(s.categoryHandler.GetCategories)))
	protectedRoutes.Handle("POST /api/tasks/categories",
		s.authMiddleware(http.HandlerFunc(s.categoryHandler.CreateCategory)))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/tasks/", protectedRoutes)
	mainRouter.Handle("GET /metrics", promhttp.Handler())
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func (s *Server) Handler() http.Handler {
	return metrics.Middleware(loggingMiddleware(s.logger, s.router))
}

func newTokenVerifier(cfg *config.Config, logger *zap.Logger) auth.TokenVerifier {
	if cfg.AuthMode == config.AuthModeJWT {
		logger.Warn("Using HS256 development tokens, do not run this in production")
		return auth.NewJWTManager(cfg.JWTSecret)
	}
	return auth.NewFirebaseVerifier(cfg.FirebaseProjectID, cfg.FirebaseCertsURL, logger)
}

func StartCertRefreshScheduler(verifier *auth.FirebaseVerifier, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	// Google rotates the securetoken keys every few hours.
	_, err := c.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := verifier.Refresh(ctx); err != nil {
			logger.Error("Error refreshing signing certificates", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}

	appLogger, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer appLogger.Sync()

	dbService, err := database.NewDBService(cfg.DBDriver, cfg.DBConnectionString, appLogger)
	if err != nil {
		appLogger.Fatal("Could not initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if cfg.AutoMigrate {
		if err := dbService.Migrate(&user.User{}, &domain.Category{}); err != nil {
			appLogger.Fatal("Could not migrate database", zap.Error(err))
		}
	}

	verifier := newTokenVerifier(cfg, appLogger)
	if firebaseVerifier, ok := verifier.(*auth.FirebaseVerifier); ok {
		if err := firebaseVerifier.Refresh(context.Background()); err != nil {
			appLogger.Warn("Initial certificate fetch failed, will retry on demand", zap.Error(err))
		}
		scheduler, err := StartCertRefreshScheduler(firebaseVerifier, appLogger)
		if err != nil {
			appLogger.Fatal("Scheduler didn't start, stopping the app", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	userRepo := user.NewUserRepository(dbService.Gorm)
	userService := user.NewUserService(userRepo)
	authMiddleware := auth.Middleware(verifier, userService, appLogger)

	if cfg.SuppressInsertErrors {
		appLogger.Info("Category insert failures are suppressed")
	}
	categoryRepo := infrastructure.NewCategoryRepository(dbService.Gorm)
	categoryService := application.NewCategoryService(categoryRepo, appLogger, cfg.SuppressInsertErrors)
	categoryHandler := interfaces.NewCategoryHandler(categoryService, appLogger, respondJSON, respondError)

	server := NewServer(categoryHandler, authMiddleware, dbService, appLogger)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		appLogger.Info("Server starting", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
