package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local operator accounts",
	}

	var username, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a local operator with admin rights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close()
			if !rt.pg.Enabled() {
				return errNoDatabase
			}

			authService := service.NewAuthService(service.AuthDependencies{
				UserRepo:   rt.store.Users,
				BcryptCost: rt.cfg.Auth.BcryptCost,
				Logger:     rt.logger,
			})
			user, err := authService.CreateLocalUser(ctx, username, password)
			if err != nil {
				return err
			}
			rt.logger.Info("local user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&username, "username", "u", "", "Username of the operator (required)")
	add.Flags().StringVarP(&password, "password", "p", "", "Password, at least 8 characters (required)")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
