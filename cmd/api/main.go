package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/budget/internal/auth"
	"github.com/MrJamesThe3rd/budget/internal/budget"
	budgetStore "github.com/MrJamesThe3rd/budget/internal/budget/store"
	"github.com/MrJamesThe3rd/budget/internal/config"
	"github.com/MrJamesThe3rd/budget/internal/database"
	"github.com/MrJamesThe3rd/budget/internal/events"
	"github.com/MrJamesThe3rd/budget/internal/export"
	budgetHttp "github.com/MrJamesThe3rd/budget/internal/http"
	categoryHandler "github.com/MrJamesThe3rd/budget/internal/http/category"
	expenseHandler "github.com/MrJamesThe3rd/budget/internal/http/expense"
	exportHandler "github.com/MrJamesThe3rd/budget/internal/http/export"
	fixedHandler "github.com/MrJamesThe3rd/budget/internal/http/fixedexpense"
	matchingHandler "github.com/MrJamesThe3rd/budget/internal/http/matching"
	settingsHandler "github.com/MrJamesThe3rd/budget/internal/http/settings"
	shoppingHandler "github.com/MrJamesThe3rd/budget/internal/http/shopping"
	statementHandler "github.com/MrJamesThe3rd/budget/internal/http/statement"
	statsHandler "github.com/MrJamesThe3rd/budget/internal/http/stats"
	"github.com/MrJamesThe3rd/budget/internal/importer"
	"github.com/MrJamesThe3rd/budget/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/budget/internal/matching/store"
	"github.com/MrJamesThe3rd/budget/internal/shopping"
	shoppingStore "github.com/MrJamesThe3rd/budget/internal/shopping/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if err := database.Migrate(cfg.ConnectionString()); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	opts := []budget.Option{
		budget.WithClock(func() time.Time { return time.Now().In(loc) }),
		budget.WithRetry(budget.RetryOptions{
			MaxAttempts:  cfg.Retry.Attempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   budget.DefaultRetryOptions().Multiplier,
		}),
	}

	if cfg.AMQP.URL != "" {
		publisher, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fmt.Errorf("connecting to broker: %w", err)
		}
		defer publisher.Close()

		opts = append(opts, budget.WithPublisher(publisher))
	}

	var (
		budgetService   = budget.NewService(budgetStore.New(db), opts...)
		matchingService = matching.NewService(matchingStore.New(db))
		shoppingService = shopping.NewService(shoppingStore.New(db))
		importService   = importer.NewService(loc)
		exportService   = export.NewService(budgetService)
	)

	handlers := budgetHttp.Handlers{
		Categories:    categoryHandler.NewHandler(budgetService),
		Expenses:      expenseHandler.NewHandler(budgetService),
		Settings:      settingsHandler.NewHandler(budgetService),
		Stats:         statsHandler.NewHandler(budgetService),
		FixedExpenses: fixedHandler.NewHandler(budgetService),
		Shopping:      shoppingHandler.NewHandler(shoppingService),
		Import:        statementHandler.NewHandler(importService, budgetService, matchingService),
		Matching:      matchingHandler.NewHandler(matchingService),
		Export:        exportHandler.NewHandler(exportService),
	}

	router := budgetHttp.New(handlers, budgetHttp.Options{
		Authenticate:   authenticator(cfg),
		AllowedOrigins: cfg.Server.CORSOrigins,
		Health:         func(ctx context.Context) error { return ping(ctx, db) },
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr, "timezone", loc.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func authenticator(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.Auth.Secret == "" {
		slog.Warn("AUTH_JWT_SECRET not set, serving every request as the dev user", "user", cfg.Auth.DevUser)
		return auth.Fixed(cfg.Auth.DevUser)
	}

	return auth.Middleware(auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer))
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}
