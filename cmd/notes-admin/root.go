package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-notes-api/pkg/config"
	"github.com/noah-isme/sma-notes-api/pkg/database"
	"github.com/noah-isme/sma-notes-api/pkg/logger"
)

// env is the state shared by subcommands once the root has initialised.
type env struct {
	dsn    string
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "notes-admin",
		Short:         "Administrative tasks for the notes API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.logger = cfg, logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&e.dsn, "dsn", "", "PostgreSQL DSN overriding the DB_* settings")

	root.AddCommand(newMigrateCmd(e), newSetRoleCmd(e))
	return root
}

func (e *env) openDB() (*sqlx.DB, error) {
	if e.dsn != "" {
		return database.Open(e.dsn, 2, 1)
	}
	return database.NewPostgres(e.cfg.Database)
}
