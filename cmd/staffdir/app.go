package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/apolyakov/staffdir/internal/db"
	"github.com/apolyakov/staffdir/internal/handlers"
	"github.com/apolyakov/staffdir/internal/handlers/middleware"
	"github.com/apolyakov/staffdir/internal/logger"
	"github.com/apolyakov/staffdir/internal/repository/postgres"
	"github.com/apolyakov/staffdir/internal/service/auth"
	"github.com/apolyakov/staffdir/internal/service/auth/tokenmanager"
	"github.com/apolyakov/staffdir/internal/service/company"
	"github.com/apolyakov/staffdir/internal/service/employee"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{Logger: log}, tokenManager, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	employeeService, err := employee.NewService(nil, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating employee service. Err: %w", err)
	}
	companyService, err := company.NewService(storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating company service. Err: %w", err)
	}

	// Initialize handlers and the router
	mux := handlers.NewRouter(
		handlers.NewAuth(authService, log),
		handlers.NewEmployee(employeeService, log),
		handlers.NewCompany(companyService, log),
		middleware.AuthMiddleware(authService),
		middleware.LoggerMiddleware(log),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
