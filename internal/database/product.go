package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Saeid202/product-importer/internal/models"
)

// EventProductsImported is emitted once per persisted import batch.
const EventProductsImported = "PRODUCTS_IMPORTED"

// ProductRepository persists imported products and their review lifecycle.
type ProductRepository struct {
	db     *DB
	outbox *OutboxRepository
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{
		db:     db,
		outbox: NewOutboxRepository(db),
	}
}

// importedPayload is the outbox payload for one import batch.
type importedPayload struct {
	BatchID    string   `json:"batch_id"`
	Count      int      `json:"count"`
	Origin     string   `json:"origin"`
	ProductIDs []string `json:"product_ids"`
}

// InsertBatch persists a batch of products and records a PRODUCTS_IMPORTED
// outbox event in the same transaction. origin names where the batch came
// from (a site name or a PDF filename). Product IDs are assigned here.
func (r *ProductRepository) InsertBatch(ctx context.Context, products []*models.Product, origin string) error {
	if len(products) == 0 {
		return nil
	}

	batchID := uuid.New()

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		ids := make([]string, 0, len(products))
		for _, p := range products {
			if p.ID == "" {
				p.ID = uuid.New().String()
			}
			if p.Status == "" {
				p.Status = models.StatusPending
			}
			if err := r.insertWithTx(ctx, tx, p); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}

		payload, err := json.Marshal(importedPayload{
			BatchID:    batchID.String(),
			Count:      len(products),
			Origin:     origin,
			ProductIDs: ids,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal import payload: %w", err)
		}

		event := &OutboxEvent{
			AggregateType: "import_batch",
			AggregateID:   batchID.String(),
			EventType:     EventProductsImported,
			Payload:       payload,
		}
		return r.outbox.InsertWithTx(ctx, tx, event)
	})
}

func (r *ProductRepository) insertWithTx(ctx context.Context, tx pgx.Tx, p *models.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	extractedAt := p.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now()
	}

	query := `
		INSERT INTO imported_products (
			id, title, price, description, images, rating, review_count,
			availability, url, source, page_number, currency, pdf_source,
			extracted_at, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.Title, p.Price, p.Description, images, p.Rating, p.ReviewCount,
		p.Availability, p.URL, p.Source, p.PageNumber, p.Currency, p.PDFSource,
		extractedAt, p.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

const productColumns = `
	id, title, price, description, images, rating, review_count,
	availability, url, source, page_number, currency, pdf_source,
	extracted_at, status`

// Get retrieves a single product by ID. A missing product returns nil, nil.
func (r *ProductRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM imported_products WHERE id = $1`

	p, err := scanProduct(r.db.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListByStatus returns products in one review state, oldest first.
func (r *ProductRepository) ListByStatus(ctx context.Context, status models.ProductStatus, limit int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM imported_products
		WHERE status = $1
		ORDER BY extracted_at ASC
		LIMIT $2`

	rows, err := r.db.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// UpdateStatus moves a product through the review lifecycle.
func (r *ProductRepository) UpdateStatus(ctx context.Context, id string, status models.ProductStatus) error {
	query := `
		UPDATE imported_products SET
			status = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update product status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", id)
	}

	return nil
}

// CountByStatus returns how many products sit in each review state.
func (r *ProductRepository) CountByStatus(ctx context.Context) (map[models.ProductStatus]int, error) {
	query := `
		SELECT status, COUNT(*) as count
		FROM imported_products
		GROUP BY status`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ProductStatus]int)
	for rows.Next() {
		var status models.ProductStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	var images []byte

	err := row.Scan(
		&p.ID, &p.Title, &p.Price, &p.Description, &images, &p.Rating,
		&p.ReviewCount, &p.Availability, &p.URL, &p.Source, &p.PageNumber,
		&p.Currency, &p.PDFSource, &p.ExtractedAt, &p.Status,
	)
	if err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("failed to unmarshal images: %w", err)
		}
	}

	return p, nil
}
