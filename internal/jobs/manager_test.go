package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saeid202/product-importer/internal/models"
	"github.com/Saeid202/product-importer/internal/pdfimport"
	"github.com/Saeid202/product-importer/internal/queue"
	"github.com/Saeid202/product-importer/internal/sites"
	"github.com/Saeid202/product-importer/internal/storage"
)

type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]*storage.ImportJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*storage.ImportJob)}
}

func (s *fakeStore) Add(job *storage.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Status == "" {
		job.Status = storage.JobPending
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) UpdateStatus(id, status string, productCount int, errs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	job.ProductCount = productCount
	job.Errors = errs
	return nil
}

func (s *fakeStore) get(id string) storage.ImportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *fakeStore) status(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id].Status
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]*models.Product
	origins []string
	err     error
}

func (s *fakeSink) InsertBatch(ctx context.Context, products []*models.Product, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, products)
	s.origins = append(s.origins, origin)
	return nil
}

type fakeScraper struct {
	mu       sync.Mutex
	site     string
	products []*models.Product
	failures int // first N calls fail
	calls    int
}

func (f *fakeScraper) Site() string { return f.site }

func (f *fakeScraper) Scrape(ctx context.Context, url string, maxResults int) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("navigation timeout")
	}
	return f.products, nil
}

func (f *fakeScraper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePDF struct {
	result *pdfimport.Result
	err    error
}

func (f *fakePDF) Process(ctx context.Context, path, filename string) (*pdfimport.Result, error) {
	return f.result, f.err
}

type fakeDashboard struct {
	mu        sync.Mutex
	started   []string // marketplace per start call
	inserted  int
	completed int
	startErr  error
}

func (d *fakeDashboard) StartImportJob(ctx context.Context, query, marketplace string, maxResults int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return "", d.startErr
	}
	d.started = append(d.started, marketplace)
	return "dash-1", nil
}

func (d *fakeDashboard) InsertProducts(ctx context.Context, jobID string, products []*models.Product) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inserted += len(products)
	return nil
}

func (d *fakeDashboard) CompleteImportJob(ctx context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed++
	return nil
}

type fakeLimiter struct {
	mu        sync.Mutex
	waits     int
	successes int
	errors    int
}

func (l *fakeLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++
	return nil
}

func (l *fakeLimiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successes++
}

func (l *fakeLimiter) RecordError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
}

func (l *fakeLimiter) counts() (waits, successes, errors int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waits, l.successes, l.errors
}

func newTestManager(t *testing.T, cfg Config) (*Manager, func()) {
	t.Helper()
	if cfg.Queue == nil {
		cfg.Queue = queue.NewInMemoryQueue()
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	m := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	return m, func() {
		m.Stop()
		cancel()
	}
}

func waitForStatus(t *testing.T, store *fakeStore, jobID, status string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return store.status(jobID) == status
	}, 2*time.Second, 10*time.Millisecond, "job never reached status %s", status)
}

func TestSubmitScrapeAndProcess(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	scraper := &fakeScraper{
		site:     "Amazon",
		products: []*models.Product{{Title: "Blue Widget", Price: "$19.99"}},
	}

	m, stop := newTestManager(t, Config{
		Store:    store,
		Sink:     sink,
		Scrapers: func(url string) sites.Scraper { return scraper },
	})
	defer stop()

	jobID, err := m.SubmitScrape("https://www.amazon.com/s?k=widgets", 10)
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobCompleted)

	job := store.get(jobID)
	assert.Equal(t, "scrape", job.Kind)
	assert.Equal(t, "Amazon", job.Site)
	assert.Equal(t, 1, job.ProductCount)

	require.Len(t, sink.batches, 1)
	assert.Equal(t, "Amazon", sink.origins[0])
}

func TestScrapeRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore()
	scraper := &fakeScraper{
		site:     "eBay",
		failures: 2,
		products: []*models.Product{{Title: "Red Gadget"}},
	}

	m, stop := newTestManager(t, Config{
		Store:    store,
		Sink:     &fakeSink{},
		Scrapers: func(url string) sites.Scraper { return scraper },
	})
	defer stop()

	jobID, err := m.SubmitScrape("https://www.ebay.com/sch/i.html?_nkw=gadget", 5)
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobCompleted)
	assert.Equal(t, 3, scraper.callCount())
}

func TestScrapeFailsAfterRetries(t *testing.T) {
	store := newFakeStore()
	scraper := &fakeScraper{site: "eBay", failures: 100}

	m, stop := newTestManager(t, Config{
		Store:    store,
		Sink:     &fakeSink{},
		Scrapers: func(url string) sites.Scraper { return scraper },
	})
	defer stop()

	jobID, err := m.SubmitScrape("https://www.ebay.com/itm/12345", 5)
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobFailed)

	// initial attempt plus maxTaskRetries requeues
	assert.Equal(t, 3, scraper.callCount())

	job := store.get(jobID)
	require.NotEmpty(t, job.Errors)
	assert.Contains(t, job.Errors[0], "navigation timeout")
}

func TestScrapeOutcomesFeedRateLimiter(t *testing.T) {
	store := newFakeStore()
	limiter := &fakeLimiter{}
	scraper := &fakeScraper{
		site:     "eBay",
		failures: 2,
		products: []*models.Product{{Title: "Red Gadget"}},
	}

	m, stop := newTestManager(t, Config{
		Store:    store,
		Sink:     &fakeSink{},
		Scrapers: func(url string) sites.Scraper { return scraper },
		Limiter:  limiter,
	})
	defer stop()

	jobID, err := m.SubmitScrape("https://www.ebay.com/sch/i.html?_nkw=gadget", 5)
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobCompleted)

	// one Wait per attempt, one outcome per attempt
	waits, successes, errors := limiter.counts()
	assert.Equal(t, 3, waits)
	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, errors)
}

func TestProcessPDFTask(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	pdf := &fakePDF{
		result: &pdfimport.Result{
			Products: []*models.Product{
				{Title: "Blue Widget", Source: "PDF Text"},
				{Title: "Red Gadget", Source: "PDF Table"},
			},
			Errors: []string{"page 3 extraction: broken stream"},
		},
	}

	m, stop := newTestManager(t, Config{
		Store: store,
		Sink:  sink,
		PDF:   pdf,
	})
	defer stop()

	jobID, err := m.SubmitPDF("/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobCompleted)

	job := store.get(jobID)
	assert.Equal(t, "pdf", job.Kind)
	assert.Equal(t, 2, job.ProductCount)
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "page 3")

	require.Len(t, sink.origins, 1)
	assert.Equal(t, "catalog.pdf", sink.origins[0])
}

func TestProcessPDFFailureIsNotRetried(t *testing.T) {
	store := newFakeStore()
	pdf := &fakePDF{err: errors.New("failed to open catalog.pdf: not a PDF")}

	m, stop := newTestManager(t, Config{
		Store: store,
		Sink:  &fakeSink{},
		PDF:   pdf,
	})
	defer stop()

	jobID, err := m.SubmitPDF("/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobFailed)

	job := store.get(jobID)
	require.NotEmpty(t, job.Errors)
	assert.Contains(t, job.Errors[0], "not a PDF")
}

func TestSinkFailureMarksJobFailed(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{err: errors.New("connection refused")}
	scraper := &fakeScraper{
		site:     "Amazon",
		products: []*models.Product{{Title: "Blue Widget"}},
	}

	m, stop := newTestManager(t, Config{
		Store:    store,
		Sink:     sink,
		Scrapers: func(url string) sites.Scraper { return scraper },
	})
	defer stop()

	jobID, err := m.SubmitScrape("https://www.amazon.com/s?k=widgets", 10)
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobFailed)
}

func TestDashboardPushForPDF(t *testing.T) {
	store := newFakeStore()
	dashboard := &fakeDashboard{}
	pdf := &fakePDF{
		result: &pdfimport.Result{
			Products: []*models.Product{{Title: "Blue Widget"}},
		},
	}

	m, stop := newTestManager(t, Config{
		Store:     store,
		Sink:      &fakeSink{},
		PDF:       pdf,
		Dashboard: dashboard,
	})
	defer stop()

	jobID, err := m.SubmitPDF("/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobCompleted)

	dashboard.mu.Lock()
	defer dashboard.mu.Unlock()
	require.Len(t, dashboard.started, 1)
	assert.Equal(t, "PDF", dashboard.started[0])
	assert.Equal(t, 1, dashboard.inserted)
	assert.Equal(t, 1, dashboard.completed)
}

func TestDashboardFailureDoesNotFailJob(t *testing.T) {
	store := newFakeStore()
	dashboard := &fakeDashboard{startErr: errors.New("backend down")}
	scraper := &fakeScraper{
		site:     "Amazon",
		products: []*models.Product{{Title: "Blue Widget"}},
	}

	m, stop := newTestManager(t, Config{
		Store:     store,
		Sink:      &fakeSink{},
		Scrapers:  func(url string) sites.Scraper { return scraper },
		Dashboard: dashboard,
	})
	defer stop()

	jobID, err := m.SubmitScrape("https://www.amazon.com/s?k=widgets", 10)
	require.NoError(t, err)

	waitForStatus(t, store, jobID, storage.JobCompleted)
}

func TestStopDrainsWorkers(t *testing.T) {
	store := newFakeStore()
	m := NewManager(Config{
		Queue:    queue.NewInMemoryQueue(),
		Store:    store,
		Sink:     &fakeSink{},
		Scrapers: func(url string) sites.Scraper { return &fakeScraper{site: "Generic"} },
		Workers:  2,
	})

	ctx := context.Background()
	m.Start(ctx)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after queue close")
	}
}
