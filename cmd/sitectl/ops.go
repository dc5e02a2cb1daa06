package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
	"github.com/piwcasokwa/backend/internal/uploader"
	"github.com/spf13/cobra"
)

var opsAPIKey string

func init() {
	sweepCmd.Flags().StringVar(&opsAPIKey, "api-key", os.Getenv("OPS_API_KEY"), "Operations API key (defaults to $OPS_API_KEY)")
}

var deleteImageCmd = &cobra.Command{
	Use:   "delete-image <public-url>",
	Short: "Delete a stored media object",
	Long: `Delete a media object by its public URL. Deleting a missing object is not an error.

Examples:
  sitectl delete-image https://storage.googleapis.com/piwc-site/gallery/1700000000000_photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runDeleteImage,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one cleanup sweep now",
	Long: `Retry every pending media deletion once and print the outcome.

Examples:
  sitectl sweep --api-key "$OPS_API_KEY"`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check site API health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runDeleteImage(cmd *cobra.Command, args []string) error {
	if adminToken == "" {
		return fmt.Errorf("--token or SITE_ADMIN_TOKEN is required")
	}

	message, err := uploader.NewClient(serverURL, adminToken, newLogger()).Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), message)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	if opsAPIKey == "" {
		return fmt.Errorf("--api-key or OPS_API_KEY is required")
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, strings.TrimRight(serverURL, "/")+"/ops/cleanup/sweep", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", opsAPIKey)

	body, err := do(req)
	if err != nil {
		return err
	}

	var result models.SweepResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "total: %d, cleaned: %d, failed: %d\n", result.Total, result.Cleaned, result.Failed)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(serverURL, "/")+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	body, err := do(req)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
	return nil
}

func do(req *http.Request) ([]byte, error) {
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
