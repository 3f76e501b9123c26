package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type EnrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CreateBatch inserts every row in one transaction. A duplicate
// (product, farmer, plot, season) aborts the whole batch.
func (r *EnrollmentRepository) CreateBatch(ctx context.Context, rows []models.EnrollmentRequest) ([]models.Enrollment, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	slog.Info("Creating enrollment batch", "count", len(rows))

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO enrollments (
			id, enrollment_code, product_id, farmer_id, plot_id, season,
			area_ha, premium, sum_insured, status, metadata, created_at
		) VALUES (
			:id, :enrollment_code, :product_id, :farmer_id, :plot_id, :season,
			:area_ha, :premium, :sum_insured, :status, :metadata, :created_at
		)`

	now := time.Now()
	enrollments := make([]models.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollment := models.Enrollment{
			ID:             uuid.NewString(),
			EnrollmentCode: utils.GenerateEnrollmentCode(now),
			ProductID:      row.ProductID,
			FarmerID:       row.FarmerID,
			PlotID:         row.PlotID,
			Season:         row.Season,
			AreaHa:         row.AreaHa,
			Premium:        row.Premium,
			SumInsured:     row.SumInsured,
			Status:         models.EnrollmentPending,
			Metadata:       utils.JSONMap{"source": "assignment_wizard"},
			CreatedAt:      now,
		}

		if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
			switch {
			case isUniqueViolation(err):
				return nil, fmt.Errorf("%w: farmer %s is already enrolled in product %s for season %s",
					models.ErrInvalidState, row.FarmerID, row.ProductID, row.Season)
			case isForeignKeyViolation(err):
				return nil, fmt.Errorf("%w: enrollment references a missing farmer, plot or product", models.ErrInvalidReference)
			}
			return nil, fmt.Errorf("failed to insert enrollment for farmer %s: %w", row.FarmerID, err)
		}
		enrollments = append(enrollments, enrollment)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit enrollment batch: %w", err)
	}

	slog.Info("Successfully created enrollment batch", "count", len(enrollments))
	return enrollments, nil
}
