package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlscope-backend/internal/auth"
	"sqlscope-backend/internal/config"
	"sqlscope-backend/internal/engine"
	"sqlscope-backend/internal/executor"
	"sqlscope-backend/internal/instrument"
	"sqlscope-backend/internal/introspect"
	"sqlscope-backend/internal/project"
	"sqlscope-backend/internal/query"
	"sqlscope-backend/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("config loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.Strings("flavors", cfg.Connector.Flavors))

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Bootstrap(ctx); err != nil {
		return err
	}
	log.Info("system tables ready")

	app, err := newApp(cfg, db, log)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("starting server", zap.String("addr", addr))
	return app.Listen(addr)
}

// newApp wires handlers and middleware onto a Fiber app.
func newApp(cfg *config.Config, db *store.Store, log *zap.Logger) (*fiber.App, error) {
	connector, err := newConnector(cfg.Connector, log, cfg.Connector.Flavors)
	if err != nil {
		return nil, err
	}
	policy, err := executor.CompilePolicy(cfg.Executor.StatementPolicy)
	if err != nil {
		return nil, err
	}
	introspector := introspect.New(connector, cfg.Connector.DescribeConcurrency, cfg.Connector.PreviewLimit, log.Named("introspect"))
	ex := executor.New(connector, policy, log.Named("executor"))

	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler(log),
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Trace-ID",
	}))
	app.Use(instrument.Middleware(log.Named("http"), auth.PrincipalID))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (no auth required)
	auth.RegisterAuthRoutes(app, auth.NewAuthHandler(db, cfg.JWTSecret, cfg.TokenTTL(), log.Named("auth")))

	authMW := auth.Middleware(auth.NewVerifier(cfg.JWTSecret, db))

	project.RegisterRoutes(app, project.NewHandler(db, introspector, connector, log.Named("project")), authMW)
	query.RegisterRoutes(app, query.NewHandler(db, ex, log.Named("query")), authMW, db)

	return app, nil
}
