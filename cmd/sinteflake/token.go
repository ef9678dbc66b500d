package main

import (
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/ceyewan/sinteflake/auth"
	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/httpapi"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for the decode endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			logger, err := clog.New(&cfg.Log, clog.WithWriter(os.Stderr))
			if err != nil {
				return err
			}
			authenticator, err := auth.New(&cfg.Auth, auth.WithLogger(logger))
			if err != nil {
				return err
			}
			token, err := authenticator.GenerateToken(ctx, &auth.Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
				Roles:            roles,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ops", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", []string{httpapi.RoleDecoder}, "roles granted to the token")
	return cmd
}
