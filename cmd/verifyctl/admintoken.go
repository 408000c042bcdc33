package main

import (
	"fmt"

	"github.com/go-prayer-verify/internal/domain"
	jwtinfra "github.com/go-prayer-verify/internal/infrastructure/jwt"
	"github.com/spf13/cobra"
)

func newAdminTokenCmd(a *app) *cobra.Command {
	var (
		userID string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Sign a bearer token for the admin settings endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := jwtinfra.NewProvider(a.cfg)
			if err != nil {
				return err
			}
			tok, err := p.Sign(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "admin user id")
	cmd.Flags().StringVar(&role, "role", domain.RoleAdmin, "role claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
