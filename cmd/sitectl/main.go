// Package main implements sitectl, the admin CLI for the site backend.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// serverURL is the base URL of the site API
	serverURL string
	// adminToken is the bearer token sent on admin calls
	adminToken string
	// verbose enables development logging
	verbose bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "Admin CLI for the site backend",
	Long: `sitectl talks to the site API on behalf of an administrator.
It mints admin tokens, uploads media in bulk and triggers maintenance.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	// Optional .env next to the binary
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("SITE_API_URL", "http://localhost:8080"), "site API URL")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", os.Getenv("SITE_ADMIN_TOKEN"), "admin bearer token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(deleteImageCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(healthCmd)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
