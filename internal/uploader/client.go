// Package uploader is the client side of the media upload protocol:
// it requests a signed grant from the API and PUTs the bytes straight to the object store.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 2 * time.Minute

// File is one local file to upload
type File struct {
	Name        string
	ContentType string
	Path        models.PathCategory
	Data        []byte
}

// Result is the outcome of one file of a batch
type Result struct {
	File      string
	PublicURL string
	Err       error
}

// BatchResult holds per-file results in input order and the number of successful uploads
type BatchResult struct {
	Results   []Result
	Succeeded int
}

// PublicURLs returns the public URLs of the successful uploads in input order
func (b *BatchResult) PublicURLs() []string {
	urls := make([]string, 0, b.Succeeded)
	for _, r := range b.Results {
		if r.Err == nil {
			urls = append(urls, r.PublicURL)
		}
	}
	return urls
}

// APIError is a non-2xx answer of the backend
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api returned %d: %s (%s)", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the upload endpoints of the backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the API at baseURL authenticating with an admin access token
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Upload runs the two-phase upload of one file and returns its public URL.
// The URL is only returned once the object store has accepted the bytes.
func (c *Client) Upload(ctx context.Context, file File) (string, error) {
	grant, err := c.requestGrant(ctx, models.UploadRequest{
		FileName:    file.Name,
		ContentType: file.ContentType,
		Path:        file.Path,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get upload url for %s: %w", file.Name, err)
	}

	if err := c.put(ctx, grant.UploadURL, file.ContentType, file.Data); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	c.logger.Debug("file uploaded", zap.String("file", file.Name), zap.String("publicUrl", grant.PublicURL))
	return grant.PublicURL, nil
}

// UploadBatch uploads independent files with at most "parallelism" uploads in flight.
// A parallelism of 1 uploads sequentially. A failed file never stops the others.
func (c *Client) UploadBatch(ctx context.Context, files []File, parallelism int) *BatchResult {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			url, err := c.Upload(gctx, file)
			results[i] = Result{File: file.Name, PublicURL: url, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{Results: results}
	for _, r := range results {
		if r.Err == nil {
			batch.Succeeded++
		} else {
			c.logger.Warn("upload failed", zap.String("file", r.File), zap.Error(r.Err))
		}
	}

	c.logger.Info("batch upload finished", zap.Int("total", len(files)), zap.Int("succeeded", batch.Succeeded))
	return batch
}

// Delete asks the backend to delete the object behind publicURL and returns its confirmation message
func (c *Client) Delete(ctx context.Context, publicURL string) (string, error) {
	var out models.Message
	if err := c.postJSON(ctx, "/delete-image", models.DeleteImageRequest{PublicURL: publicURL}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) requestGrant(ctx context.Context, req models.UploadRequest) (*models.SignedUploadGrant, error) {
	var grant models.SignedUploadGrant
	if err := c.postJSON(ctx, "/generate-upload-url", req, &grant); err != nil {
		return nil, err
	}
	if grant.UploadURL == "" || grant.PublicURL == "" {
		return nil, fmt.Errorf("incomplete upload grant")
	}
	return &grant, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error         string `json:"error"`
			Message       string `json:"message"`
			DetailedError string `json:"detailedError"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		// delete failures answer with {"message": ...}
		msg := apiErr.Error
		if msg == "" {
			msg = apiErr.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Detail: apiErr.DetailedError}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// put sends the bytes to the signed URL with the Content-Type the grant was signed for
func (c *Client) put(ctx context.Context, uploadURL, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
