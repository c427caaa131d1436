package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Saeid202/product-importer/internal/models"
	"github.com/Saeid202/product-importer/internal/storage"
)

// maxUploadSize caps uploaded documents at 50 MB.
const maxUploadSize = 50 << 20

// JobSubmitter accepts new import work.
type JobSubmitter interface {
	SubmitScrape(url string, maxResults int) (string, error)
	SubmitPDF(path, filename string) (string, error)
}

// JobReader exposes job history.
type JobReader interface {
	Get(id string) (*storage.ImportJob, bool)
	List() []*storage.ImportJob
	Stats() map[string]int
}

// ProductStore exposes persisted products for review.
type ProductStore interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	ListByStatus(ctx context.Context, status models.ProductStatus, limit int) ([]*models.Product, error)
	UpdateStatus(ctx context.Context, id string, status models.ProductStatus) error
	CountByStatus(ctx context.Context) (map[models.ProductStatus]int, error)
}

type Handlers struct {
	submitter JobSubmitter
	jobs      JobReader
	products  ProductStore
	uploadDir string
	logger    *slog.Logger
}

func NewHandlers(submitter JobSubmitter, jobs JobReader, products ProductStore, uploadDir string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		submitter: submitter,
		jobs:      jobs,
		products:  products,
		uploadDir: uploadDir,
		logger:    logger.With("component", "api"),
	}
}

// ScrapeRequest starts an import from a live listing URL.
type ScrapeRequest struct {
	URL        string `json:"url"`
	MaxResults int    `json:"max_results"`
}

// SubmitResponse acknowledges an accepted import job.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// StartScrape handles scrape job creation.
func (h *Handlers) StartScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		h.respondError(w, http.StatusBadRequest, "url must be absolute")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}

	jobID, err := h.submitter.SubmitScrape(req.URL, req.MaxResults)
	if err != nil {
		h.logger.Error("failed to submit scrape job", "error", err, "url", req.URL)
		h.respondError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, SubmitResponse{JobID: jobID, Status: storage.JobPending})
}

// UploadPDF handles document uploads. The file is stored under the upload
// directory and processed asynchronously.
func (h *Handlers) UploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		h.respondError(w, http.StatusBadRequest, "only PDF files are accepted")
		return
	}

	path, err := h.saveUpload(file, filename)
	if err != nil {
		h.logger.Error("failed to store upload", "error", err, "filename", filename)
		h.respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	jobID, err := h.submitter.SubmitPDF(path, filename)
	if err != nil {
		h.logger.Error("failed to submit pdf job", "error", err, "filename", filename)
		h.respondError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, SubmitResponse{JobID: jobID, Status: storage.JobPending})
}

func (h *Handlers) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	path := filepath.Join(h.uploadDir, uuid.New().String()+"-"+filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// GetJob handles job status retrieval.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := h.jobs.Get(jobID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles listing all jobs.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.List())
}

// GetJobStats returns job counts per status.
func (h *Handlers) GetJobStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.Stats())
}

// ListProducts returns products awaiting review, filtered by status.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	status := models.ProductStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusPending
	}
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		h.respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	products, err := h.products.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*models.Product{}
	}

	h.respondJSON(w, http.StatusOK, products)
}

// GetProduct handles single product retrieval.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ApproveProduct moves a product to the approved state.
func (h *Handlers) ApproveProduct(w http.ResponseWriter, r *http.Request) {
	h.reviewProduct(w, r, models.StatusApproved)
}

// RejectProduct moves a product to the rejected state.
func (h *Handlers) RejectProduct(w http.ResponseWriter, r *http.Request) {
	h.reviewProduct(w, r, models.StatusRejected)
}

func (h *Handlers) reviewProduct(w http.ResponseWriter, r *http.Request, status models.ProductStatus) {
	id := chi.URLParam(r, "productID")

	if err := h.products.UpdateStatus(r.Context(), id, status); err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to update product status", "error", err, "id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

// GetProductStats returns product counts per review status.
func (h *Handlers) GetProductStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.products.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error("failed to count products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to count products")
		return
	}
	h.respondJSON(w, http.StatusOK, counts)
}

// Health reports service liveness plus job queue counts.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"jobs":   h.jobs.Stats(),
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
