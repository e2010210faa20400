package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/database"
)

const pairColumns = `id, name, period, period_label, course_codes, common_subjects, weekly_schedule, active, created_at, updated_at`

// CoursePairRepository manages persistence for course pairs.
type CoursePairRepository struct {
	db *sqlx.DB
}

// NewCoursePairRepository constructs a new course pair repository.
func NewCoursePairRepository(db *sqlx.DB) *CoursePairRepository {
	return &CoursePairRepository{db: db}
}

// List returns pairs ordered by period and name.
func (r *CoursePairRepository) List(ctx context.Context, filter models.CoursePairFilter) ([]models.CoursePair, error) {
	var conditions []string
	var args []interface{}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(array_to_string(course_codes, ' ')) LIKE $%d)", len(args), len(args)))
	}
	query := "SELECT " + pairColumns + " FROM course_pairs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY period ASC, name ASC"

	var pairs []models.CoursePair
	if err := r.db.SelectContext(ctx, &pairs, query, args...); err != nil {
		return nil, fmt.Errorf("list course pairs: %w", err)
	}
	return pairs, nil
}

// FindByID returns a course pair by ID.
func (r *CoursePairRepository) FindByID(ctx context.Context, id string) (*models.CoursePair, error) {
	query := "SELECT " + pairColumns + " FROM course_pairs WHERE id = $1"
	var pair models.CoursePair
	if err := r.db.GetContext(ctx, &pair, query, id); err != nil {
		return nil, err
	}
	return &pair, nil
}

// CreateWithClasses inserts a pair and its classes in one transaction.
func (r *CoursePairRepository) CreateWithClasses(ctx context.Context, pair *models.CoursePair, classes []*models.Class) error {
	if pair.ID == "" {
		pair.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pair.CreatedAt = now
	pair.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertPair = `INSERT INTO course_pairs (id, name, period, period_label, course_codes, common_subjects, weekly_schedule, active, created_at, updated_at)
VALUES (:id, :name, :period, :period_label, :course_codes, :common_subjects, :weekly_schedule, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertPair, pair); err != nil {
			return fmt.Errorf("create course pair: %w", err)
		}
		for _, class := range classes {
			class.PairID = pair.ID
			if err := insertClass(ctx, tx, class, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update modifies the mutable pair fields.
func (r *CoursePairRepository) Update(ctx context.Context, pair *models.CoursePair) error {
	pair.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_pairs SET name = :name, period = :period, period_label = :period_label, course_codes = :course_codes,
common_subjects = :common_subjects, weekly_schedule = :weekly_schedule, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, pair); err != nil {
		return fmt.Errorf("update course pair: %w", err)
	}
	return nil
}

// SetActive flips the offerable flag of a pair.
func (r *CoursePairRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE course_pairs SET active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set course pair active: %w", err)
	}
	return nil
}

// Delete removes a pair together with its classes.
func (r *CoursePairRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE pair_id = $1`, id); err != nil {
			return fmt.Errorf("delete pair classes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM course_pairs WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete course pair: %w", err)
		}
		return nil
	})
}
