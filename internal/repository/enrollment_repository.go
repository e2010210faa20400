package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/database"
)

// ErrClassFull is returned when a class has no seat left at insert time.
var ErrClassFull = errors.New("class is full")

// EnrollmentRepository admits students into classes.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CreateWithSeat inserts student into its class if a seat is free. The class row is
// locked for the duration of the transaction so concurrent enrollments into the same
// class are serialised. It returns the class's new enrollment count.
func (r *EnrollmentRepository) CreateWithSeat(ctx context.Context, student *models.Student) (int, error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	var enrolled int
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var capacity int
		if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM classes WHERE id = $1 FOR UPDATE`, student.ClassID); err != nil {
			return err
		}
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE class_id = $1`, student.ClassID); err != nil {
			return fmt.Errorf("count class students: %w", err)
		}
		if count >= capacity {
			return ErrClassFull
		}

		const insert = `INSERT INTO students (id, student_number, name, email, phone, national_id, birth_date, address, course_code, class_id, pair_id,
shift_label, payment_method, status, amount_paid, duration_label, start_date, document_path, created_at, updated_at, created_by)
VALUES (:id, :student_number, :name, :email, :phone, :national_id, :birth_date, :address, :course_code, :class_id, :pair_id,
:shift_label, :payment_method, :status, :amount_paid, :duration_label, :start_date, :document_path, :created_at, :updated_at, :created_by)`
		if _, err := tx.NamedExecContext(ctx, insert, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}

		enrolled = count + 1
		if _, err := tx.ExecContext(ctx, `UPDATE classes SET enrolled_count = $1, updated_at = $2 WHERE id = $3`, enrolled, now, student.ClassID); err != nil {
			return fmt.Errorf("update class enrolled count: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return enrolled, nil
}
