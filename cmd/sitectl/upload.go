package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/piwcasokwa/backend/internal/models"
	"github.com/piwcasokwa/backend/internal/uploader"
	"github.com/spf13/cobra"
)

var (
	uploadPath     string
	uploadParallel int
)

func init() {
	uploadCmd.Flags().StringVar(&uploadPath, "path", "", "Storage folder, e.g. gallery or executives (required)")
	uploadCmd.Flags().IntVar(&uploadParallel, "parallel", 4, "Concurrent uploads")
	_ = uploadCmd.MarkFlagRequired("path")
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload media files",
	Long: `Upload one or more files through signed upload URLs and print their public URLs.

Examples:
  # Upload a gallery batch
  sitectl upload --path gallery photos/*.jpg

  # Upload an executive portrait
  sitectl upload --path executives portrait.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	if adminToken == "" {
		return fmt.Errorf("--token or SITE_ADMIN_TOKEN is required")
	}

	files := make([]uploader.File, 0, len(args))
	for _, name := range args {
		file, err := readUploadFile(name, models.PathCategory(uploadPath))
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	client := uploader.NewClient(serverURL, adminToken, newLogger())
	batch := client.UploadBatch(cmd.Context(), files, uploadParallel)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tRESULT")
	for _, res := range batch.Results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", res.File, res.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", res.File, res.PublicURL)
	}
	w.Flush()

	if batch.Succeeded < len(files) {
		return fmt.Errorf("%d of %d uploads failed", len(files)-batch.Succeeded, len(files))
	}
	return nil
}

// readUploadFile loads a file and guesses its content type from the extension, then from its bytes
func readUploadFile(name string, path models.PathCategory) (uploader.File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return uploader.File{}, fmt.Errorf("failed to read %s: %w", name, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return uploader.File{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Path:        path,
		Data:        data,
	}, nil
}
