package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vocabtrainer/internal/config"
	"vocabtrainer/internal/profile"
	"vocabtrainer/internal/session"
	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/sync"
	"vocabtrainer/internal/vocab"
)

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trainer",
		Short:         "Vocabulary trainer with spaced repetition and encrypted sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newStudyCmd())
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newDueCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newProfileCmd())

	return rootCmd
}

// app wires the stores, session and sync manager for the active profile.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	registry *profile.Registry
	profiles *profile.Store
	session  *session.Session
	manager  *sync.Manager
	settings storage.SettingsStore
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	profiles := profile.NewStore(cfg.ProfilesPath)
	registry, err := profiles.Load()
	if err != nil {
		return nil, err
	}

	db, err := storage.New(profile.DBPath(cfg.DataDir, registry.Current().ID))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ds, err := vocab.Load(cfg.DatasetPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	progressRepo := storage.NewProgressRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)
	historyRepo := storage.NewHistoryRepo(db)

	manager := sync.NewManager(progressRepo, settingsRepo, logger)
	sess := session.New(ds, progressRepo, settingsRepo, historyRepo, manager, logger)
	manager.OnRestore = sess.Invalidate

	return &app{
		cfg:      cfg,
		db:       db,
		registry: registry,
		profiles: profiles,
		session:  sess,
		manager:  manager,
		settings: settingsRepo,
	}, nil
}

func (a *app) close() {
	_ = a.db.Close()
}
