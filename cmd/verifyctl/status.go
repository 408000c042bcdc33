package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cached verified sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cache, err := a.cache(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if email != "" {
				fmt.Fprintf(out, "%s recently verified: %t\n", email, cache.IsRecentlyVerified(ctx, email))
				return nil
			}
			sessions := cache.Sessions(ctx)
			if len(sessions) == 0 {
				fmt.Fprintln(out, "no cached sessions")
				return nil
			}
			for _, s := range sessions {
				exp := "never"
				if s.ExpiresAt != nil {
					exp = time.UnixMilli(*s.ExpiresAt).Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s\tverified %s\texpires %s\n", s.Email, time.UnixMilli(s.VerifiedAt).Format(time.RFC3339), exp)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "only report this address")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget all cached verified sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := a.cache(cmd.Context())
			if err != nil {
				return err
			}
			if err := cache.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sessions cleared")
			return nil
		},
	}
}
