package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"inventoryHub/internal/auth"
	"inventoryHub/internal/cache"
	"inventoryHub/internal/config"
	"inventoryHub/internal/db"
	"inventoryHub/internal/handlers"
	"inventoryHub/internal/migrations"
	"inventoryHub/internal/notification"
	"inventoryHub/internal/queue"
	"inventoryHub/internal/routes"
	"inventoryHub/internal/security"
	"inventoryHub/internal/worker"
	"inventoryHub/server"
)

const usage = "usage: inventoryhub [serve | worker | migrate <up|down|version|force N>]"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		err = serve(ctx, cfg)
	case "worker":
		err = runWorker(ctx, cfg)
	case "migrate":
		err = migrations.Run(migrations.Files, cfg.Database.URL(), os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	if err != nil {
		slog.Error("Exiting", "command", command, "error", err)
		os.Exit(1)
	}
}

// notificationService opens the configured notification store. The returned
// cleanup closes whatever connection backs it.
func notificationService(ctx context.Context, cfg *config.Config) (*notification.NotificationService, func(), error) {
	opts := []notification.Option{
		notification.WithRetry(notification.RetryPolicy{Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}),
		notification.WithScanRounds(cfg.ScanRounds),
		notification.WithSubscribeLimit(cfg.SubscribeLimit),
	}

	if cfg.NotificationStore == config.StoreMemory {
		slog.Warn("Using in-memory notification store; data is lost on restart")
		return notification.NewNotificationService(notification.NewMemoryStore(), opts...), func() {}, nil
	}

	var secrets config.SecretDecrypter
	if cfg.FirebaseKeyCiphertext != "" {
		decrypter, err := config.NewKMSDecrypter(ctx, cfg.KMSKeyID)
		if err != nil {
			return nil, nil, err
		}
		secrets = decrypter
	}

	client, err := config.InitFirestore(ctx, secrets)
	if err != nil {
		return nil, nil, err
	}

	store := notification.NewFirestoreStore(client.Firestore)
	return notification.NewNotificationService(store, opts...), func() { client.Close() }, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	notifications, closeStore, err := notificationService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	database, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()
	users := db.NewUserRepository(database)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	profiles := cache.NewProfileCache(redisClient, users, cfg.ProfileCacheTTL)
	if err := profiles.Ping(ctx); err != nil {
		slog.Warn("Profile cache unreachable, reading profiles from Postgres", "error", err)
	}

	registrations := queue.NewClient(cfg.RedisAddr)
	defer registrations.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	h := handlers.New(handlers.Deps{
		Notifications: notifications,
		Profiles:      profiles,
		Users:         users,
		Tokens:        tokens,
		Registrations: registrations,
		Validate:      auth.NewValidator(),
		PageSize:      cfg.PageSize,
	})

	mw := routes.NewMiddlewares(
		tokens,
		auth.NewRateLimiter(cfg.AuthRateLimit),
		security.NewIPRateLimiter(cfg.StreamRateLimit, cfg.StreamBurst),
	)

	return server.NewServer(cfg, h, mw).Start(ctx)
}

func runWorker(ctx context.Context, cfg *config.Config) error {
	notifications, closeStore, err := notificationService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return worker.NewWorker(cfg.RedisAddr, cfg.WorkerConcurrency, notifications).Start(ctx)
}
