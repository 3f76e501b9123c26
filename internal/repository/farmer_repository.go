package repository

import (
	"context"
	"fmt"
	"strings"

	"agrisa-ops/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type FarmerRepository struct {
	db *sqlx.DB
}

func NewFarmerRepository(db *sqlx.DB) *FarmerRepository {
	return &FarmerRepository{db: db}
}

func (r *FarmerRepository) List(ctx context.Context, filter models.FarmerFilter) ([]models.Farmer, error) {
	query, args := buildFarmerListQuery(filter)

	var farmers []models.Farmer
	if err := r.db.SelectContext(ctx, &farmers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	return farmers, nil
}

func buildFarmerListQuery(filter models.FarmerFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.Province != "" {
		args = append(args, filter.Province)
		conditions = append(conditions, fmt.Sprintf("province = $%d", len(args)))
	}
	if filter.VerifiedOnly {
		conditions = append(conditions, "verified = TRUE")
	}

	query := `SELECT id, full_name, phone, province, verified, created_at FROM farmers`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY full_name, id"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	return query, args
}

// GetByIDs returns the farmers that exist among ids, in no particular order.
func (r *FarmerRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Farmer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, full_name, phone, province, verified, created_at FROM farmers WHERE id = ANY($1)`

	var farmers []models.Farmer
	if err := r.db.SelectContext(ctx, &farmers, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get farmers by ids: %w", err)
	}
	return farmers, nil
}
