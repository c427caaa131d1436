package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Saeid202/product-importer/internal/models"
)

// DefaultBaseURL is the dashboard products endpoint used when no base URL
// is configured.
const DefaultBaseURL = "https://localhost:3000/dashboard/products"

// Client talks to the dashboard backend that receives imported products.
// Import runs are bracketed by a job: start, insert one or more batches,
// complete.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("component", "connector"),
	}
}

type startRequest struct {
	Query       string `json:"query"`
	Marketplace string `json:"marketplace"`
	MaxResults  int    `json:"maxResults"`
}

type startResponse struct {
	JobID string `json:"jobId"`
}

type insertRequest struct {
	JobID    string                    `json:"jobId"`
	Products []models.DashboardPayload `json:"products"`
}

type completeRequest struct {
	JobID string `json:"jobId"`
}

// StartImportJob registers a new import run with the backend and returns
// the job ID the backend assigned.
func (c *Client) StartImportJob(ctx context.Context, query, marketplace string, maxResults int) (string, error) {
	var resp startResponse
	err := c.post(ctx, "start", startRequest{
		Query:       query,
		Marketplace: marketplace,
		MaxResults:  maxResults,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("backend did not return jobId")
	}

	c.logger.Info("import job started", "job_id", resp.JobID, "marketplace", marketplace)
	return resp.JobID, nil
}

// InsertProducts sends one batch of products for an open job.
func (c *Client) InsertProducts(ctx context.Context, jobID string, products []*models.Product) error {
	payloads := make([]models.DashboardPayload, 0, len(products))
	for _, p := range products {
		payloads = append(payloads, p.ToDashboard())
	}

	if err := c.post(ctx, "insert-products", insertRequest{JobID: jobID, Products: payloads}, nil); err != nil {
		return err
	}

	c.logger.Info("products sent", "job_id", jobID, "count", len(products))
	return nil
}

// CompleteImportJob marks an import run finished on the backend.
func (c *Client) CompleteImportJob(ctx context.Context, jobID string) error {
	return c.post(ctx, "complete", completeRequest{JobID: jobID}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
