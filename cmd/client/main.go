package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/fitzone/fitzone-cli/internal/client/api"
	"github.com/fitzone/fitzone-cli/internal/client/auth"
	"github.com/fitzone/fitzone-cli/internal/client/cache"
	sqlitecache "github.com/fitzone/fitzone-cli/internal/client/cache/sqlite"
	"github.com/fitzone/fitzone-cli/internal/client/cli"
	"github.com/fitzone/fitzone-cli/internal/client/config"
	"github.com/fitzone/fitzone-cli/internal/client/iocli"
	"github.com/fitzone/fitzone-cli/internal/client/membership"
	"github.com/fitzone/fitzone-cli/internal/client/session"
	"github.com/fitzone/fitzone-cli/internal/client/storage"
	"github.com/fitzone/fitzone-cli/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// .env удобен при локальной разработке; его отсутствие не ошибка
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}
	cfg := config.Load()

	// Глобальные флаги; значения из окружения служат дефолтами
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", cfg.ServerURL, "Server URL")
	wsURL := flag.String("ws", cfg.WSUrl, "WebSocket URL for membership updates")
	dbPath := flag.String("db", cfg.DBPath, "Path to credential database")
	cachePath := flag.String("cache", cfg.CacheDBPath, "Path to offline cache database")
	idleTimeout := flag.Duration("idle-timeout", cfg.IdleTimeout, "Inactivity window before automatic logout")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	setupLogger(*debug)

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	ctx := context.Background()

	// Хранилище сессии: BoltDB, при отказе - память (сессия не переживет
	// завершение процесса, но команды работают)
	credStorage := openCredentialStorage(ctx, *dbPath)
	defer func() {
		if err := credStorage.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	authStore, err := auth.NewStore(ctx, credStorage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize credential store: %v\n", err)
		os.Exit(1)
	}

	sessionState := session.NewState(authStore.HasToken(ctx))

	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, authStore, sessionState)

	// Все не-auth запросы идут через авторизующий transport
	apiClient.EnableAuthorization(authService)

	authService.SetSessionExpiredHandler(func(reason string) {
		switch reason {
		case auth.ReasonIdle:
			fmt.Fprintln(os.Stderr, "\nYou have been signed out due to inactivity.")
		case auth.ReasonExpired:
			fmt.Fprintln(os.Stderr, "\nYour session has expired. Please login again.")
		}
	})

	offlineCache := openCache(ctx, *cachePath)
	if offlineCache != nil {
		defer func() {
			if err := offlineCache.Close(); err != nil {
				slog.Error("failed to close cache", "error", err)
			}
		}()
	}

	membershipService := membership.NewService(apiClient, offlineCache)

	c := cli.New(apiClient, authService, membershipService, sessionState, iocli.NewStdio(), *wsURL, *idleTimeout)
	c.Run(ctx, command, args[1:])
}

func openCredentialStorage(ctx context.Context, dbPath string) storage.CredentialStorage {
	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		slog.Warn("failed to open database, falling back to in-memory storage", "error", err)
		return storage.NewMemory()
	}
	return boltStorage
}

func openCache(ctx context.Context, cachePath string) cache.Cache {
	sqliteCache, err := sqlitecache.New(ctx, cachePath)
	if err != nil {
		slog.Warn("offline cache unavailable", "error", err)
		return nil
	}
	return sqliteCache
}

func setupLogger(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func printVersion() {
	fmt.Printf("FitZone Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
