// Package database reads sales history from the retail schema and persists
// analysis snapshots.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"marketpulse/models"
)

// ErrProductNotFound is returned when a product id has no inventory item.
var ErrProductNotFound = errors.New("product not found")

// DBTX is the part of pgxpool.Pool the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the pgx-backed history source and snapshot sink.
type Store struct {
	db  DBTX
	now func() time.Time
}

// NewStore wraps a pool or transaction.
func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

const merchantsQuery = `
	SELECT DISTINCT merchant_id
	FROM inventory_items
	ORDER BY merchant_id`

// Merchants lists every merchant that owns at least one inventory item.
func (s *Store) Merchants(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, merchantsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const catalogQuery = `
	SELECT id, merchant_id, name
	FROM inventory_items
	WHERE merchant_id = $1
	ORDER BY name, id`

// Catalog lists a merchant's inventory items.
func (s *Store) Catalog(ctx context.Context, merchantID string) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, catalogQuery, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const productQuery = `
	SELECT id, merchant_id, name
	FROM inventory_items
	WHERE id = $1`

// Product loads one inventory item.
func (s *Store) Product(ctx context.Context, productID string) (models.Product, error) {
	var p models.Product
	err := s.db.QueryRow(ctx, productQuery, productID).Scan(&p.ID, &p.MerchantID, &p.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// Same-day sales are summed so the engine sees one point per day.
const dailySalesQuery = `
	SELECT s.sale_date::date AS day, SUM(si.quantity_sold)::float8 AS quantity
	FROM sales s
	JOIN sale_items si ON s.id = si.sale_id
	WHERE si.inventory_item_id = $1
	AND s.sale_date >= $2
	GROUP BY day
	ORDER BY day`

// DailySales returns the product's per-day totals over the trailing days.
func (s *Store) DailySales(ctx context.Context, productID string, days int) ([]models.SalesPoint, error) {
	since := s.now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	rows, err := s.db.Query(ctx, dailySalesQuery, productID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales history: %w", err)
	}
	defer rows.Close()

	points := []models.SalesPoint{}
	for rows.Next() {
		var p models.SalesPoint
		if err := rows.Scan(&p.Date, &p.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan sales day: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

const saveSnapshotQuery = `
	INSERT INTO product_intelligence_snapshots (id, merchant_id, product_id, payload, created_at)
	VALUES ($1, $2, $3, $4, $5)`

// SaveSnapshot persists an analysis result and returns the stored record.
func (s *Store) SaveSnapshot(ctx context.Context, merchantID string, result *models.AnalysisResult) (models.SnapshotRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return models.SnapshotRecord{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	rec := models.SnapshotRecord{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		ProductID:  result.ProductID,
		CreatedAt:  s.now().UTC(),
	}
	if _, err := s.db.Exec(ctx, saveSnapshotQuery, rec.ID, rec.MerchantID, rec.ProductID, payload, rec.CreatedAt); err != nil {
		return models.SnapshotRecord{}, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return rec, nil
}
