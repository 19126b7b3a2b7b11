package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amora/internal/audit"
	"amora/internal/captcha"
	"amora/internal/config"
	"amora/internal/daemon"
	"amora/internal/database"
	"amora/internal/i18n"
	"amora/internal/mail"
	"amora/internal/notifications"
	"amora/internal/ratelimit"
	"amora/internal/registration"
	"amora/internal/validator"
	"amora/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal", "signal", sig.String())
		cancel()
	}()

	cfg := config.NewConfig()

	// Set up logger
	var handler slog.Handler
	if cfg.Server.Environment == config.EnvironmentProduction {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Set up Postgres connection
	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.DSN()); err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		return err
	}

	// Set up redis for the attempt limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Set up session store backing the OAuth registration flow
	sessionStorage := postgres.New(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		Table:    "tbl_session",
		Reset:    false,
	})
	sessionStore := session.New(session.Config{
		Storage:        sessionStorage,
		KeyLookup:      "cookie:session_id",
		CookiePath:     "/",
		CookieSecure:   cfg.Server.Environment == config.EnvironmentProduction,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     24 * time.Hour,
	})

	translator, err := i18n.NewTranslator("en")
	if err != nil {
		logger.Error("Failed to load translations", "error", err)
		return err
	}

	var mailer registration.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(logger, cfg.Mail, cfg.Server.BaseURL)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	auditor := audit.NewAuditor(logger, &db)
	notifier := notifications.NewManager(logger, &db)
	captchaManager := captcha.NewManager(logger, &db, cfg.Registration.CaptchaTTL)
	spamFilter := registration.NewSpamDomainFilter(logger, cfg.Registration.SpamDomainsFile, cfg.Server.Environment)
	registrationManager := registration.NewManager(logger, &db, &captchaManager, mailer,
		&notifier, &auditor, spamFilter, cfg.Registration)
	rateLimiter := ratelimit.NewLimiter(redisClient)

	handlerV := validator.New()
	webHandler := web.NewHandler(logger, &registrationManager, &captchaManager, rateLimiter,
		handlerV, translator, sessionStore)

	// Set up Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(web.Logger())

	// IP-level guard in front of the email-level redis limiter
	signupLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	})

	app.Get("/auth/captcha", webHandler.NewCaptcha)
	app.Post("/auth/register", signupLimiter, webHandler.Register)
	app.Post("/auth/register/confirm/:token", webHandler.Confirm)
	app.Post("/auth/register/oauth", signupLimiter, webHandler.RegisterOAuth)

	// Background cleanup
	daemonManager := daemon.NewManager(logger)
	daemonManager.Add("cleanup", daemon.CleanupTask(&db, logger, cfg.Registration))
	daemonManager.Start(ctx)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Failed to shut down server", "error", err)
		}
	}()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Info("Starting server", "addr", addr, "environment", cfg.Server.Environment)
	if err := app.Listen(addr); err != nil {
		return err
	}

	daemonManager.Wait()
	return nil
}
