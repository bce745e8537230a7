package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Anvoria/walletauth/internal/config"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/identity"
	"github.com/Anvoria/walletauth/internal/migrations"
	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
)

// NewApp builds the fiber application with the full request pipeline
func NewApp(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Server.MaxBodyBytes(),
		ErrorHandler: ErrorHandler(deps.Metrics),
	})

	app.Use(deps.Metrics.Middleware())
	app.Use(recover.New())
	app.Use(helmet.New())

	if len(cfg.Server.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.Server.AllowedOrigins, ","),
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept,Authorization,Device-Id,Timestamp,Sign",
			MaxAge:       3600,
		}))
	}

	app.Use(auth.Authenticate(deps.Validator))

	SetupRoutes(app, deps)
	return app
}

// Start initializes logging, connects the stores, runs migrations and serves until SIGINT or SIGTERM
func Start(cfg *config.Config) error {
	initLogger(cfg.Logging.Level)

	jwtKey, err := config.LoadJWTPublicKey(cfg.Auth.JWTPublicKeyBase64)
	if err != nil {
		slog.Error("Failed to load jwt public key", "error", err)
		return err
	}

	if !cfg.Database.UseMemory() {
		if err := migrations.Up(cfg); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return err
		}
		slog.Info("Migrations completed successfully")
	}

	clk := clock.New()
	storage, err := OpenStorage(cfg, clk)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	defer storage.Close()
	slog.Info("Database connected successfully", "driver", cfg.Database.Driver)

	marks, closeMarks, err := OpenWatermarks(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		return err
	}
	defer closeMarks()

	notifier, err := NewNotifier(cfg)
	if err != nil {
		return err
	}

	deps, err := NewDependencies(cfg, Collaborators{
		JWTKey:     jwtKey,
		Storage:    storage,
		Watermarks: marks,
		Identity:   identity.NewHTTPClient(cfg.Identity.URL, cfg.Identity.Timeout()),
		Notifier:   notifier,
		Clock:      clk,
	})
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}

	app := NewApp(cfg, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	addr := cfg.Server.Address()

	g.Go(func() error {
		slog.Info("Server starting",
			"address", addr,
			"app", cfg.App.Name,
			"version", cfg.App.Version,
		)
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Server shutting down")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	return nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
