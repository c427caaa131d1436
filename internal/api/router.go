package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the HTTP surface of the importer.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/import/scrape", h.StartScrape)
		r.Post("/import/pdf", h.UploadPDF)

		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/stats", h.GetJobStats)
		r.Get("/jobs/{jobID}", h.GetJob)

		r.Get("/products", h.ListProducts)
		r.Get("/products/stats", h.GetProductStats)
		r.Get("/products/{productID}", h.GetProduct)
		r.Post("/products/{productID}/approve", h.ApproveProduct)
		r.Post("/products/{productID}/reject", h.RejectProduct)
	})

	return r
}
