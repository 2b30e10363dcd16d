// Package server is the composition root: it wires the database,
// repositories, services, handlers, and background jobs into a running
// HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/sakif/booknest/internal/auth"
	"github.com/sakif/booknest/internal/config"
	"github.com/sakif/booknest/internal/handler"
	"github.com/sakif/booknest/internal/imagehost"
	"github.com/sakif/booknest/internal/middleware"
	"github.com/sakif/booknest/internal/payment"
	sqliteRepo "github.com/sakif/booknest/internal/repository/sqlite"
	"github.com/sakif/booknest/internal/service"
)

// Server owns the router, the database connection, and the background
// sweeper. Close order on shutdown: HTTP drain, cron stop, DB close.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	cron   *cron.Cron
	orders *service.OrderService
}

// New assembles the full dependency graph. Each layer only receives
// interfaces from the layer below: services get repositories, handlers
// get services.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Repositories.
	accounts := sqliteRepo.NewAccountRepo(s.db)
	books := sqliteRepo.NewBookRepo(s.db)
	orders := sqliteRepo.NewOrderRepo(s.db)
	reviews := sqliteRepo.NewReviewRepo(s.db)
	wishlist := sqliteRepo.NewWishlistRepo(s.db)
	payments := sqliteRepo.NewPaymentRepo(s.db)

	// Auth building blocks.
	if s.cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	tokens, err := auth.NewTokenService(s.cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	var verifier auth.CredentialVerifier
	if s.cfg.Auth.IdentitySecret != "" {
		verifier, err = auth.NewJWTVerifier(s.cfg.Auth.IdentitySecret, s.cfg.Auth.IdentityIssuer)
		if err != nil {
			return err
		}
	}

	var google *auth.GoogleProvider
	if s.cfg.Auth.GoogleClientID != "" {
		google = auth.NewGoogleProvider(
			s.cfg.Auth.GoogleClientID,
			s.cfg.Auth.GoogleClientSecret,
			s.cfg.Auth.GoogleCallbackURL,
		)
	}

	// External collaborators.
	var images imagehost.Uploader
	if s.cfg.Images.UploadURL != "" {
		images = imagehost.NewClient(s.cfg.Images.UploadURL, s.cfg.Images.APIKey)
	}
	var gateway payment.Gateway
	if s.cfg.Payment.ProviderURL != "" {
		gateway = payment.NewHTTPGateway(s.cfg.Payment.ProviderURL, s.cfg.Payment.APIKey)
	}

	// Services.
	authService := service.NewAuthService(accounts, passwords, tokens, verifier, s.logger)
	accountService := service.NewAccountService(accounts, s.logger)
	bookService := service.NewBookService(books, images, s.logger)
	orderService := service.NewOrderService(orders, books, s.logger)
	reviewService := service.NewReviewService(reviews, orders, books, s.logger)
	wishlistService := service.NewWishlistService(wishlist, books)
	paymentService := service.NewPaymentService(payments, orders, books, gateway, s.logger)
	s.orders = orderService

	// Handlers.
	authHandler := handler.NewAuthHandler(authService, google, s.logger, s.cfg.Auth.SecureCookies)
	accountHandler := handler.NewAccountHandler(accountService)
	bookHandler := handler.NewBookHandler(bookService, reviewService)
	orderHandler := handler.NewOrderHandler(orderService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	wishlistHandler := handler.NewWishlistHandler(wishlistService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	requireAuth := auth.RequireAuth(tokens, accounts)
	optionalAuth := auth.OptionalAuth(tokens, accounts)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		if google != nil {
			r.Get("/google/login", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		if verifier != nil {
			r.Post("/auth/external", authHandler.HandleExternalLogin)
		}
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Public catalog, widened for privileged callers.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/books", bookHandler.HandleList)
		})
		r.Get("/books/{id}", bookHandler.HandleGet)
		r.Get("/books/{id}/reviews", bookHandler.HandleListReviews)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)

			r.Get("/accounts", accountHandler.HandleList)
			r.Get("/accounts/{id}", accountHandler.HandleGet)
			r.Patch("/accounts/{id}", accountHandler.HandleUpdate)
			r.Put("/accounts/{id}/role", accountHandler.HandleSetRole)

			r.Post("/books", bookHandler.HandleCreate)
			r.Put("/books/{id}", bookHandler.HandleUpdate)
			r.Put("/books/{id}/status", bookHandler.HandleSetStatus)
			r.Delete("/books/{id}", bookHandler.HandleDelete)
			r.Post("/books/{id}/reviews", bookHandler.HandleCreateReview)
			r.Get("/books/{id}/reviews/eligibility", bookHandler.HandleCanReview)

			r.Post("/orders", orderHandler.HandleCreate)
			r.Get("/orders", orderHandler.HandleListMine)
			r.Get("/orders/managed", orderHandler.HandleListManaged)
			r.Get("/orders/{id}", orderHandler.HandleGet)
			r.Put("/orders/{id}/status", orderHandler.HandleUpdateStatus)
			r.Post("/orders/{id}/cancel", orderHandler.HandleCancel)

			r.Get("/reviews", reviewHandler.HandleListMine)
			r.Put("/reviews/{id}", reviewHandler.HandleUpdate)
			r.Delete("/reviews/{id}", reviewHandler.HandleDelete)

			r.Get("/wishlist", wishlistHandler.HandleList)
			r.Post("/wishlist", wishlistHandler.HandleAdd)
			r.Delete("/wishlist/{id}", wishlistHandler.HandleRemove)

			if gateway != nil {
				r.Post("/payments/intent", paymentHandler.HandleCreateIntent)
				r.Post("/payments/confirm", paymentHandler.HandleConfirm)
			}
			r.Get("/payments", paymentHandler.HandleHistory)
			r.Get("/payments/{id}", paymentHandler.HandleGet)
		})
	})

	return nil
}

// startSweeper schedules the stale-order sweep. Orders left pending and
// unpaid past the configured age are cancelled so they stop holding the
// "pending" view hostage.
func (s *Server) startSweeper() error {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.Sweeper.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.orders.ExpirePending(ctx, s.cfg.Sweeper.MaxAge); err != nil {
			s.logger.Error("order sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling order sweeper: %w", err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("order sweeper scheduled",
		"schedule", s.cfg.Sweeper.Schedule, "max_age", s.cfg.Sweeper.MaxAge)
	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down
// gracefully: drain HTTP, stop the sweeper, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	if err := s.startSweeper(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// Wait for a running sweep to finish before the DB closes.
		<-s.cron.Stop().Done()

		s.logger.Info("server stopped gracefully")
	}

	return nil
}
