package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

const classColumns = `id, pair_id, variant, room_code, capacity, enrolled_count, weekly_schedule, created_at, updated_at`

// ClassRepository manages persistence for classes (turmas).
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListByPair returns the classes of a pair ordered by variant.
func (r *ClassRepository) ListByPair(ctx context.Context, pairID string) ([]models.Class, error) {
	query := "SELECT " + classColumns + " FROM classes WHERE pair_id = $1 ORDER BY variant ASC"
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, pairID); err != nil {
		return nil, fmt.Errorf("list classes by pair: %w", err)
	}
	return classes, nil
}

// FindByID returns a class record by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := "SELECT " + classColumns + " FROM classes WHERE id = $1"
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByPairAndVariant returns the class of a pair with the given variant.
func (r *ClassRepository) FindByPairAndVariant(ctx context.Context, pairID string, variant models.ClassVariant) (*models.Class, error) {
	query := "SELECT " + classColumns + " FROM classes WHERE pair_id = $1 AND variant = $2"
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, pairID, variant); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create persists a class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	return insertClass(ctx, r.db, class, time.Now().UTC())
}

// Update modifies room, capacity, stored count and schedule of a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET room_code = :room_code, capacity = :capacity, enrolled_count = :enrolled_count,
weekly_schedule = :weekly_schedule, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// UpdateEnrolledCount persists a reconciled enrollment count.
func (r *ClassRepository) UpdateEnrolledCount(ctx context.Context, id string, count int) error {
	const query = `UPDATE classes SET enrolled_count = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, count, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update class enrolled count: %w", err)
	}
	return nil
}

func insertClass(ctx context.Context, exec sqlx.ExtContext, class *models.Class, now time.Time) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, pair_id, variant, room_code, capacity, enrolled_count, weekly_schedule, created_at, updated_at)
VALUES (:id, :pair_id, :variant, :room_code, :capacity, :enrolled_count, :weekly_schedule, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}
