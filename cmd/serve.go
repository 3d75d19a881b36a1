package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"love-vault-backend/internal/cache"
	"love-vault-backend/internal/config"
	"love-vault-backend/internal/db"
	"love-vault-backend/internal/handlers"
	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/repository"
	"love-vault-backend/internal/services"
	"love-vault-backend/internal/storage"
	"love-vault-backend/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogger(cfg.Log.Level, cfg.Log.Format)
		return run(cmd.Context(), cfg)
	},
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Connect to database
	pool, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info().Msg("Database connection established")

	// Connect to Redis
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")

	// Object storage
	s3Store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	objectStore := storage.NewInstrumentedStore(s3Store)

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	momentRepo := repository.NewMomentRepository(pool)

	// Initialize services
	wsHub := services.NewWSHub()
	mediaService := services.NewMediaService(objectStore, cfg.Storage)
	authService := services.NewAuthService(userRepo, cache.NewRevocationStore(redisClient), cfg.Auth)
	profileService := services.NewProfileService(profileRepo, mediaService, wsHub)
	momentService := services.NewMomentService(momentRepo, mediaService, wsHub)
	timelineService := services.NewTimelineService(momentRepo, mediaService, cfg.Timeline.PageSize)
	activityService := services.NewActivityService(momentRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService, cfg.Storage.MaxUploadBytes)
	momentHandler := handlers.NewMomentHandler(momentService, timelineService, cfg.Storage.MaxUploadBytes)
	dashboardHandler := handlers.NewDashboardHandler(activityService)
	mediaHandler := handlers.NewMediaHandler(mediaService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, authService, cfg.Server.AllowedOrigin)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	if cfg.Metrics.Enabled {
		r.Use(telemetry.Middleware)
	}
	r.Use(corsMiddleware(cfg.Server.AllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", telemetry.Handler())
	}

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/sign-up", authHandler.SignUp)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/oauth", authHandler.OAuth)
		r.Get("/auth/callback", authHandler.Callback)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/profile", profileHandler.GetProfile)
			r.Post("/onboarding", profileHandler.Onboard)

			// Onboarded routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireOnboarded(profileService))
				r.Put("/profile", profileHandler.UpdateProfile)
				r.Put("/profile/photo", profileHandler.ReplacePhoto)
				r.Delete("/profile/photo", profileHandler.RemovePhoto)

				r.Get("/moments", momentHandler.ListMoments)
				r.Post("/moments", momentHandler.CreateMoment)
				r.Get("/moments/{id}", momentHandler.GetMoment)
				r.Put("/moments/{id}", momentHandler.UpdateMoment)
				r.Delete("/moments/{id}", momentHandler.DeleteMoment)

				r.Get("/activity", dashboardHandler.GetActivity)
				r.Get("/media/signed-url", mediaHandler.GetSignedURL)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server. Uploads carry up to MaxUploadBytes, so writes are not time-boxed.
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
