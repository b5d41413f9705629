package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/server"
	"taskboard/internal/service"
	"taskboard/internal/storage/sqlite"
)

const usage = `usage: taskboard [command] [flags]

commands:
  serve       run the HTTP API (default)
  user add    register a user: -name NAME -email EMAIL
  token       mint a bearer token: -user ID
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = runServe(cfg, logger, args)
	case "user":
		err = runUser(cfg, logger, args)
	case "token":
		err = runToken(cfg, logger, args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", slog.String("command", cmd), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runServe(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to sqlite database file")
	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "sqlite driver: sqlite3 (cgo) or sqlite (pure Go)")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory with built frontend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("taskboard starting", slog.String("driver", cfg.DBDriver), slog.String("db", cfg.DBPath))

	store, err := sqlite.Open(cfg.DBDriver, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer store.Close()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	srv := server.New(service.New(store, logger), store, issuer, logger, server.Options{
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

func runUser(cfg config.Config, logger *slog.Logger, args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return fmt.Errorf("expected: taskboard user add -name NAME -email EMAIL")
	}
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to sqlite database file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBDriver, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer store.Close()

	user, err := store.CreateUser(context.Background(), *name, *email)
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\t%s\n", user.ID, user.Name, user.Email)
	return nil
}

func runToken(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to sqlite database file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBDriver, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer store.Close()

	user, err := store.GetUser(context.Background(), *userID)
	if err != nil {
		return err
	}
	token, err := issuer.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
