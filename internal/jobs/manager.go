package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Saeid202/product-importer/internal/browser"
	"github.com/Saeid202/product-importer/internal/models"
	"github.com/Saeid202/product-importer/internal/pdfimport"
	"github.com/Saeid202/product-importer/internal/queue"
	"github.com/Saeid202/product-importer/internal/sites"
	"github.com/Saeid202/product-importer/internal/storage"
)

// maxTaskRetries bounds how often a failed scrape task is requeued before
// the job is marked failed.
const maxTaskRetries = 2

// JobStore records job lifecycle transitions.
type JobStore interface {
	Add(job *storage.ImportJob) error
	UpdateStatus(id, status string, productCount int, errors []string) error
}

// ProductSink persists a finished batch of products.
type ProductSink interface {
	InsertBatch(ctx context.Context, products []*models.Product, origin string) error
}

// PDFProcessor turns an uploaded document into products.
type PDFProcessor interface {
	Process(ctx context.Context, path, filename string) (*pdfimport.Result, error)
}

// Dashboard pushes finished batches to the dashboard backend. Optional; a
// nil dashboard skips the push.
type Dashboard interface {
	StartImportJob(ctx context.Context, query, marketplace string, maxResults int) (string, error)
	InsertProducts(ctx context.Context, jobID string, products []*models.Product) error
	CompleteImportJob(ctx context.Context, jobID string) error
}

// RateLimiter spaces out scrape tasks so target sites are not hammered.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// limiterFeedback is implemented by limiters that adapt their pacing to
// scrape outcomes, like ratelimit.AdaptiveRateLimiter.
type limiterFeedback interface {
	RecordSuccess()
	RecordError()
}

// ScraperFor picks the scraper for a listing URL.
type ScraperFor func(url string) sites.Scraper

// SiteScrapers is the production ScraperFor, dispatching on the URL's
// domain via the shared browser.
func SiteScrapers(b *browser.Browser) ScraperFor {
	return func(url string) sites.Scraper {
		return sites.ForURL(b, url)
	}
}

// Manager owns the task queue and the worker pool that drains it. Submit
// methods register a job and enqueue its task; workers move jobs through
// processing to completed or failed.
type Manager struct {
	queue     queue.Queue
	store     JobStore
	sink      ProductSink
	scrapers  ScraperFor
	pdf       PDFProcessor
	dashboard Dashboard
	limiter   RateLimiter
	workers   int
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// Config wires a Manager. Queue, Store, Sink, Scrapers and PDF are
// required; Dashboard and Limiter are optional.
type Config struct {
	Queue     queue.Queue
	Store     JobStore
	Sink      ProductSink
	Scrapers  ScraperFor
	PDF       PDFProcessor
	Dashboard Dashboard
	Limiter   RateLimiter
	Workers   int
	Logger    *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		queue:     cfg.Queue,
		store:     cfg.Store,
		sink:      cfg.Sink,
		scrapers:  cfg.Scrapers,
		pdf:       cfg.PDF,
		dashboard: cfg.Dashboard,
		limiter:   cfg.Limiter,
		workers:   cfg.Workers,
		logger:    cfg.Logger.With("component", "jobs"),
	}
}

// Start launches the worker pool. Workers exit when the queue closes or
// the context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for i := 1; i <= m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx, i)
	}
	m.logger.Info("workers started", "count", m.workers)
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (m *Manager) Stop() {
	m.queue.Close()
	m.wg.Wait()
}

// SubmitScrape registers a scrape job for a listing URL and returns the
// job ID.
func (m *Manager) SubmitScrape(url string, maxResults int) (string, error) {
	id := uuid.New().String()
	site := sites.DetectSite(url)

	job := &storage.ImportJob{
		ID:   id,
		Kind: "scrape",
		URL:  url,
		Site: site,
	}
	if err := m.store.Add(job); err != nil {
		return "", fmt.Errorf("failed to record job: %w", err)
	}

	task := &queue.Task{
		ID:         uuid.New().String(),
		JobID:      id,
		URL:        url,
		Site:       site,
		MaxResults: maxResults,
		CreatedAt:  time.Now(),
	}
	if err := m.queue.Push(task); err != nil {
		m.store.UpdateStatus(id, storage.JobFailed, 0, []string{err.Error()})
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	m.logger.Info("scrape job submitted", "job_id", id, "url", url, "site", site)
	return id, nil
}

// SubmitPDF registers an import job for an uploaded document and returns
// the job ID. The file at path must outlive the job.
func (m *Manager) SubmitPDF(path, filename string) (string, error) {
	id := uuid.New().String()

	job := &storage.ImportJob{
		ID:       id,
		Kind:     "pdf",
		Filename: filename,
	}
	if err := m.store.Add(job); err != nil {
		return "", fmt.Errorf("failed to record job: %w", err)
	}

	task := &queue.Task{
		ID:        uuid.New().String(),
		JobID:     id,
		PDFPath:   path,
		Filename:  filename,
		Priority:  1, // uploads jump ahead of background scrapes
		CreatedAt: time.Now(),
	}
	if err := m.queue.Push(task); err != nil {
		m.store.UpdateStatus(id, storage.JobFailed, 0, []string{err.Error()})
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	m.logger.Info("pdf job submitted", "job_id", id, "filename", filename)
	return id, nil
}

func (m *Manager) worker(ctx context.Context, id int) {
	defer m.wg.Done()

	logger := m.logger.With("worker", id)
	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			logger.Debug("worker stopping", "reason", err)
			return
		}
		m.process(ctx, task, logger)
	}
}

func (m *Manager) process(ctx context.Context, task *queue.Task, logger *slog.Logger) {
	m.store.UpdateStatus(task.JobID, storage.JobProcessing, 0, nil)

	var (
		products []*models.Product
		pageErrs []string
		origin   string
		err      error
	)

	if task.IsPDF() {
		origin = task.Filename
		var result *pdfimport.Result
		result, err = m.pdf.Process(ctx, task.PDFPath, task.Filename)
		if result != nil {
			products = result.Products
			pageErrs = result.Errors
		}
	} else {
		origin = task.Site
		if origin == "" {
			origin = task.URL
		}
		if m.limiter != nil {
			if werr := m.limiter.Wait(ctx); werr != nil {
				m.store.UpdateStatus(task.JobID, storage.JobFailed, 0, []string{werr.Error()})
				return
			}
		}
		products, err = m.scrapers(task.URL).Scrape(ctx, task.URL, task.MaxResults)

		// Adaptive limiters back off while a site keeps failing us.
		if fb, ok := m.limiter.(limiterFeedback); ok {
			if err != nil {
				fb.RecordError()
			} else {
				fb.RecordSuccess()
			}
		}
	}

	if err != nil {
		if !task.IsPDF() && task.Retries < maxTaskRetries && ctx.Err() == nil {
			task.Retries++
			logger.Warn("scrape failed, requeueing", "job_id", task.JobID, "attempt", task.Retries, "error", err)
			if qerr := m.queue.Push(task); qerr == nil {
				return
			}
		}
		logger.Error("task failed", "job_id", task.JobID, "error", err)
		m.store.UpdateStatus(task.JobID, storage.JobFailed, 0, append(pageErrs, err.Error()))
		return
	}

	if len(products) > 0 {
		if err := m.sink.InsertBatch(ctx, products, origin); err != nil {
			logger.Error("failed to persist batch", "job_id", task.JobID, "error", err)
			m.store.UpdateStatus(task.JobID, storage.JobFailed, 0, append(pageErrs, err.Error()))
			return
		}
	}

	m.pushToDashboard(ctx, task, products, logger)

	m.store.UpdateStatus(task.JobID, storage.JobCompleted, len(products), pageErrs)
	logger.Info("task completed", "job_id", task.JobID, "products", len(products))
}

// pushToDashboard forwards the batch to the dashboard backend. Push
// failures are logged but never fail the job; the products are already
// persisted locally.
func (m *Manager) pushToDashboard(ctx context.Context, task *queue.Task, products []*models.Product, logger *slog.Logger) {
	if m.dashboard == nil || len(products) == 0 {
		return
	}

	query := task.URL
	marketplace := task.Site
	if task.IsPDF() {
		query = task.Filename
		marketplace = "PDF"
	}

	jobID, err := m.dashboard.StartImportJob(ctx, query, marketplace, len(products))
	if err != nil {
		logger.Warn("dashboard push skipped", "job_id", task.JobID, "error", err)
		return
	}
	if err := m.dashboard.InsertProducts(ctx, jobID, products); err != nil {
		logger.Warn("dashboard insert failed", "job_id", task.JobID, "error", err)
		return
	}
	if err := m.dashboard.CompleteImportJob(ctx, jobID); err != nil {
		logger.Warn("dashboard complete failed", "job_id", task.JobID, "error", err)
	}
}
