package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/client"
	"github.com/examind/proctor/internal/config"
	"github.com/examind/proctor/internal/session"
	"github.com/examind/proctor/internal/snapshot"
	"github.com/examind/proctor/internal/tui"
)

func main() {
	var (
		configPath string
		testIDStr  string
	)
	flag.StringVar(&configPath, "config", "proctor.yaml", "Path to client config file")
	flag.StringVar(&testIDStr, "test", "", "UUID of the test to take")
	flag.Parse()

	if testIDStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: proctor -test <test-uuid> [-config proctor.yaml]")
		os.Exit(2)
	}
	testID, err := uuid.Parse(testIDStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid test ID %q: %v\n", testIDStr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadClient(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Email == "" || cfg.Password == "" {
		fmt.Fprintln(os.Stderr, "Credentials missing: set email/password in the config file or PROCTOR_EMAIL/PROCTOR_PASSWORD")
		os.Exit(2)
	}

	log := setupLog(cfg.LogLevel)

	api := client.New(cfg.ServerURL, log)

	loginCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	student, err := api.Login(loginCtx, cfg.Email, cfg.Password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Str("student", student.Name).Msg("Logged in")

	snaps, err := snapshot.OpenSQLite(cfg.SnapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open snapshot store: %v\n", err)
		os.Exit(1)
	}
	defer snaps.Close()

	feed := client.NewProctorFeed(cfg.ServerURL, api.Token(), testID, log)
	defer feed.Close()

	sink := tui.NewNoticeSink(feed)
	ctrl := session.New(
		session.Config{TestID: testID, ViolationLimit: cfg.ViolationLimit},
		api, snaps, tui.AltScreen{}, sink, log,
	)

	model := tui.New(ctrl, feed, sink, log)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "UI error: %v\n", err)
		os.Exit(1)
	}
}

// setupLog writes structured logs to the file named by PROCTOR_LOG_FILE.
// Without it, logs are discarded: stdout belongs to the UI.
func setupLog(level string) zerolog.Logger {
	var w io.Writer = io.Discard
	if path := os.Getenv("PROCTOR_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			w = f
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
