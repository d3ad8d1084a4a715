package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
	"github.com/georgemunganga/crafty-backend/internal/modules/user"
)

func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is required")
			}
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("--user must be a uuid: %w", err)
			}
			r := user.Role(role)
			switch r {
			case user.RoleCustomer, user.RoleVendor, user.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.NewIssuer(cfg.Auth.JWTSecret).Issue(userID, r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (uuid) placed in the subject claim")
	cmd.Flags().StringVar(&role, "role", string(user.RoleCustomer), "customer, vendor or admin")
	cmd.MarkFlagRequired("user")
	return cmd
}
