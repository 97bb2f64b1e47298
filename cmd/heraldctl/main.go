package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"herald/client/session"
	"herald/internal/errors"
)

// Supported subcommands:
// - login:  Start a session and store the token pair
// - logout: Revoke the refresh token and forget the pair
// - unread: Print the unread count
// - list:   Print one page of notifications
// - read:   Mark one notification, or all of them, read
// - tail:   Follow pushed events, reconciling against the pull API

func main() {
	global := flag.NewFlagSet("heraldctl", flag.ExitOnError)
	server := global.String("server", envOr("HERALD_SERVER", "http://localhost:8080"), "Server base URL")
	sessionPath := global.String("session", "", "Session file (default: user config dir)")
	verbose := global.Bool("v", false, "Log session activity to stderr")
	global.Usage = printUsage

	_ = global.Parse(os.Args[1:])
	if global.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(*server, *sessionPath, *verbose)
	if err == nil {
		err = app.run(ctx, global.Arg(0), global.Args()[1:])
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, session.ErrSessionEnded) {
			fmt.Fprintln(os.Stderr, "Session ended, run `heraldctl login` again.")
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(server, sessionPath string, verbose bool) (*app, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var store session.Store
	if sessionPath != "" {
		store = session.NewFileStore(sessionPath)
	} else {
		fs, err := session.DefaultFileStore()
		if err != nil {
			return nil, err
		}
		store = fs
	}

	coord, err := session.New(session.Config{
		BaseURL: server,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{coord: coord, out: os.Stdout, logger: logger}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: heraldctl [-server URL] [-session FILE] [-v] <command> [flags]

Commands:
  login   -email EMAIL [-password PASSWORD]
  logout
  unread
  list    [-limit N] [-offset N] [-json]
  read    ID | -all
  tail    [-json]

The password falls back to HERALD_PASSWORD, then to a terminal prompt.
`)
}
