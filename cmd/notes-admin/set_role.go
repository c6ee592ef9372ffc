package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-notes-api/internal/repository"
	"github.com/noah-isme/sma-notes-api/internal/service"
	"github.com/noah-isme/sma-notes-api/pkg/cache"
)

func newSetRoleCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "set-role <username> <student|teacher|admin>",
		Short:   "Assign a role to a user and end their sessions",
		Example: "  notes-admin set-role alice teacher",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB()
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()

			var sessions service.SessionRegistry
			if e.cfg.Redis.Enabled {
				client, err := cache.NewRedis(cmd.Context(), e.cfg.Redis)
				if err != nil {
					return fmt.Errorf("connect redis: %w", err)
				}
				defer client.Close()
				sessions = repository.NewSessionRepository(client)
			}

			auth := service.NewAuthService(repository.NewUserRepository(db), sessions, nil, e.logger, service.AuthConfig{
				Secret: e.cfg.JWT.Secret,
				Expiry: e.cfg.JWT.Expiration,
				Issuer: e.cfg.JWT.Issuer,
			})
			user, err := auth.SetRole(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Username, user.Role)
			return nil
		},
	}
}
