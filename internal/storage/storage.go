package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Job lifecycle states.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ImportJob is the persisted record of one import run: where it came
// from, how far it got, and what it produced.
type ImportJob struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"` // "scrape" or "pdf"
	URL          string    `json:"url,omitempty"`
	Site         string    `json:"site,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Status       string    `json:"status"`
	ProductCount int       `json:"product_count"`
	Errors       []string  `json:"errors,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// JobStore is a file-backed record of import jobs, so job history survives
// process restarts.
type JobStore struct {
	mu       sync.RWMutex
	jobs     map[string]*ImportJob
	filename string
}

func NewJobStore(filename string) (*JobStore, error) {
	s := &JobStore{
		jobs:     make(map[string]*ImportJob),
		filename: filename,
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

func (s *JobStore) Add(job *ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	job.CreatedAt = time.Now()
	job.UpdatedAt = time.Now()
	if job.Status == "" {
		job.Status = JobPending
	}

	s.jobs[job.ID] = job
	return s.save()
}

func (s *JobStore) Get(id string) (*ImportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	return job, exists
}

// List returns all jobs, unordered.
func (s *JobStore) List() []*ImportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*ImportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// UpdateStatus moves a job to a new state and records its outcome.
func (s *JobStore) UpdateStatus(id, status string, productCount int, errors []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Status = status
	job.ProductCount = productCount
	job.Errors = errors
	job.UpdatedAt = time.Now()

	return s.save()
}

// Stats returns job counts per status plus a total.
func (s *JobStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	stats["total"] = len(s.jobs)
	return stats
}

func (s *JobStore) save() error {
	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first for atomicity
	tmpFile := s.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, s.filename)
}

func (s *JobStore) Load() error {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &s.jobs)
}
