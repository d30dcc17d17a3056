package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/terraincognita07/fittrack/internal/ai"
	"github.com/terraincognita07/fittrack/internal/api"
	"github.com/terraincognita07/fittrack/internal/cli"
	"github.com/terraincognita07/fittrack/internal/config"
	"github.com/terraincognita07/fittrack/internal/db"
	"github.com/terraincognita07/fittrack/internal/events"
	"github.com/terraincognita07/fittrack/internal/logger"
	"github.com/terraincognita07/fittrack/internal/observability"
	"github.com/terraincognita07/fittrack/internal/services"
	"gorm.io/gorm"
)

const revokedTokenPurgeInterval = time.Hour

type completionPublisher interface {
	services.CompletionPublisher
	Close() error
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fittrack: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	port, err := resolvePort(cfg.Port)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	database, err := openDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	repos := db.NewRepositories(database)

	if len(args) > 0 {
		return runCommand(args, repos)
	}
	return serve(cfg, port, log, repos)
}

func runCommand(args []string, repos *db.Repositories) error {
	auth := services.NewAuthService(repos.Users)
	command := args[0]
	if len(args) < 2 {
		return fmt.Errorf("usage: fittrack %s <email>", command)
	}

	switch command {
	case "reset-password":
		var prompt cli.PasswordPrompt
		if len(args) > 2 && args[2] == "--prompt" {
			prompt = cli.TerminalPrompt(os.Stdin, os.Stdout)
		}
		return cli.RunResetPasswordCommand(auth, args[1], prompt, os.Stdout)
	case "promote-admin":
		return cli.RunPromoteAdminCommand(auth, args[1], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(cfg config.Config, port string, log *logger.Logger, repos *db.Repositories) error {
	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()

	metrics := observability.New()
	publisher := newCompletionPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close completion publisher", "error", err)
		}
	}()

	handler, err := api.NewHandler(api.Dependencies{
		Auth:    services.NewAuthService(repos.Users),
		Account: services.NewAccountService(repos.Users),
		Progress: services.NewProgressService(
			repos.Challenges,
			repos.Enrollments,
			repos.ProgressMarks,
			cfg.Location,
			services.WithCompletionPublisher(publisher),
			services.WithProgressRecorder(metrics),
			services.WithProgressLogger(log.With("component", "progress")),
		),
		Catalog:               services.NewCatalogService(repos.Challenges, newSuggester(lifecycleCtx, cfg, log), metrics, log.With("component", "catalog")),
		RevokedTokens:         repos.RevokedTokens,
		Metrics:               metrics,
		Logger:                log,
		SecretKey:             cfg.SecretKey,
		TokenTTL:              cfg.TokenTTL,
		GenerateRatePerMinute: cfg.GenerateRatePerMinute,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(cfg, handler, metrics, log)
	go purgeRevokedTokens(lifecycleCtx, repos.RevokedTokens, log)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("fittrack listening",
		"port", port,
		"db_driver", cfg.DBDriver,
		"tz", cfg.Location.String(),
		"kafka", len(cfg.KafkaBrokers) > 0,
		"gemini", cfg.GeminiAPIKey != "",
	)
	if err := app.Listen(":" + port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(cfg config.Config, handler *api.Handler, metrics *observability.Metrics, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "fittrack",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	app.Use(metrics.Middleware())
	app.Use(api.RequestLogger(log))
	api.RegisterRoutes(app, handler)
	return app
}

func corsConfig(origins string) cors.Config {
	return cors.Config{
		AllowOrigins: strings.Join(splitOrigins(origins), ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}
}

func splitOrigins(value string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func openDatabase(cfg config.Config, log *logger.Logger) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return db.OpenPostgres(cfg.DatabaseURL, log)
	default:
		return db.OpenSQLite(cfg.DBPath, log)
	}
}

// newSuggester returns nil when Gemini is not configured; the catalog then seeds the defaults.
func newSuggester(ctx context.Context, cfg config.Config, log *logger.Logger) services.ChallengeSuggester {
	suggester, err := ai.NewGeminiSuggester(ctx, ai.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		Endpoint: cfg.GeminiEndpoint,
	}, log)
	if err != nil {
		if !errors.Is(err, ai.ErrSuggesterOffline) {
			log.Warn("gemini suggester unavailable", "error", err)
		}
		return nil
	}
	return suggester
}

func newCompletionPublisher(cfg config.Config, log *logger.Logger) completionPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}
	}
	log.Info("publishing completion events", "topic", cfg.KafkaCompletionTopic)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaCompletionTopic)
}

type revokedTokenPurger interface {
	PurgeExpired(now time.Time) (int64, error)
}

func purgeRevokedTokens(ctx context.Context, tokens revokedTokenPurger, log *logger.Logger) {
	ticker := time.NewTicker(revokedTokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			purged, err := tokens.PurgeExpired(now)
			if err != nil {
				log.Warn("purge revoked tokens", "error", err)
				continue
			}
			if purged > 0 {
				log.Debug("purged revoked tokens", "count", purged)
			}
		}
	}
}

func resolvePort(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return "8080", nil
	}
	value, err := strconv.Atoi(port)
	if err != nil || value < 1 || value > 65535 {
		return "", fmt.Errorf("invalid PORT %q", raw)
	}
	return port, nil
}
