package main

import (
	"fmt"
	"os"
	"time"

	"github.com/piwcasokwa/backend/internal/auth/service"
	"github.com/spf13/cobra"
)

var (
	tokenSecret string
	tokenExpiry time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret (defaults to $JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", time.Hour, "Token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token <uid>",
	Short: "Mint an admin access token",
	Long: `Mint an access token for an administrator uid.

The uid must also be present in the admins table for the API to accept it.

Examples:
  # Token valid for one hour
  sitectl token 3f1c2a

  # Longer lived token for a bulk upload session
  sitectl token 3f1c2a --expiry 8h`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenSecret == "" {
		return fmt.Errorf("--secret or JWT_SECRET is required")
	}

	token, err := service.NewTokenGenerator(tokenSecret, tokenExpiry).GenerateAccessToken(args[0])
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
