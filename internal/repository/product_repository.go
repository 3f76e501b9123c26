package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ProductRepository reads products from postgres with a Redis read-through
// cache. Cache failures only cost a database round trip.
type ProductRepository struct {
	db          *sqlx.DB
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewProductRepository(db *sqlx.DB, redisClient *redis.Client, cacheTTL time.Duration) *ProductRepository {
	return &ProductRepository{db: db, redisClient: redisClient, cacheTTL: cacheTTL}
}

func productCacheKey(id string) string {
	return "assignment:product:" + id
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if cached, ok := r.getCached(ctx, id); ok {
		return cached, nil
	}

	query := `
		SELECT id, code, name, crop_type, status, coverage_start, coverage_end,
			region_description, province, district, commune,
			premium_rate_per_hectare, sum_insured_per_hectare, currency,
			created_at, updated_at
		FROM products
		WHERE id = $1`

	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	r.setCached(ctx, &product)
	return &product, nil
}

func (r *ProductRepository) getCached(ctx context.Context, id string) (*models.Product, bool) {
	if r.redisClient == nil {
		return nil, false
	}
	data, err := r.redisClient.Get(ctx, productCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("product cache read failed", "product_id", id, "error", err)
		}
		return nil, false
	}

	var product models.Product
	if err := utils.DeserializeModel(data, &product); err != nil {
		slog.Warn("product cache entry corrupted", "product_id", id, "error", err)
		return nil, false
	}
	return &product, true
}

func (r *ProductRepository) setCached(ctx context.Context, product *models.Product) {
	if r.redisClient == nil || r.cacheTTL <= 0 {
		return
	}
	data, err := utils.SerializeModel(product)
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, productCacheKey(product.ID), data, r.cacheTTL).Err(); err != nil {
		slog.Warn("product cache write failed", "product_id", product.ID, "error", err)
	}
}
