// Package commands implements the queryscope CLI.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/config"
	"github.com/queryscope/queryscope/internal/core/connection"
	"github.com/queryscope/queryscope/internal/debug"
	"github.com/queryscope/queryscope/internal/repository"
	"github.com/queryscope/queryscope/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "queryscope",
	Short: "Visual query builder engine",
	Long: `QueryScope compiles structured query specs into dialect-correct,
parameterized SQL, validates them against the live schema and executes
them read-only with hard row and time bounds.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var debugFlag bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// Execute is the main entry point for the CLI.
func Execute() error {
	defer shutdownEngine()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

var (
	engine     *service.Engine
	templateDB *sql.DB
)

// getEngine builds the engine lazily so commands that never touch a
// database (version, help) pay nothing.
func getEngine() (*service.Engine, error) {
	if engine != nil {
		return engine, nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug.Init(debugFlag || cfg.Debug)

	regConfigs, err := cfg.RegistryConfigs()
	if err != nil {
		return nil, err
	}
	registry := connection.NewRegistry(regConfigs)

	store, err := openTemplateStore(cfg.TemplateDBPath)
	if err != nil {
		return nil, err
	}

	engine = service.NewEngine(registry, store)
	return engine, nil
}

func openTemplateStore(path string) (*repository.SQLTemplateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create template db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template db: %w", err)
	}
	templateDB = db

	store := repository.NewSQLTemplateStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func shutdownEngine() {
	if engine != nil {
		_ = engine.Shutdown()
	}
	if templateDB != nil {
		_ = templateDB.Close()
	}
}
