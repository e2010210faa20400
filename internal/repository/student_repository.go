package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/database"
)

const studentColumns = `id, student_number, name, email, phone, national_id, birth_date, address, course_code, class_id, pair_id, shift_label,
payment_method, status, amount_paid, duration_label, start_date, document_path, created_at, updated_at, created_by`

// StudentRepository manages persistence for students (alunos).
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns every student whose class_id is classID.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE class_id = $1 ORDER BY created_at ASC"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

func buildStudentFilter(filter models.StudentFilter) (string, []interface{}) {
	base := "FROM students WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PairID != "" {
		args = append(args, filter.PairID)
		conditions = append(conditions, fmt.Sprintf("pair_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if filter.CourseCode != "" {
		args = append(args, filter.CourseCode)
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR phone LIKE $%d OR LOWER(national_id) LIKE $%d OR LOWER(student_number) LIKE $%d)", n, n, n, n))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}

func studentOrder(filter models.StudentFilter) string {
	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":           true,
		"student_number": true,
		"status":         true,
		"course_code":    true,
		"created_at":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return sortBy + " " + order
}

// List returns students matching filter criteria with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base, args := buildStudentFilter(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", studentColumns, base, studentOrder(filter), size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student matching filter without pagination, for exports.
func (r *StudentRepository) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	base, args := buildStudentFilter(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s", studentColumns, base, studentOrder(filter))
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// CountByPair returns how many students reference the pair.
func (r *StudentRepository) CountByPair(ctx context.Context, pairID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE pair_id = $1`, pairID); err != nil {
		return 0, fmt.Errorf("count students by pair: %w", err)
	}
	return total, nil
}

// Update modifies the editable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, phone = :phone, national_id = :national_id, birth_date = :birth_date,
address = :address, course_code = :course_code, payment_method = :payment_method, status = :status, amount_paid = :amount_paid,
updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateStatus sets a student's status.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// SetDocument records the storage path of the student's uploaded document.
func (r *StudentRepository) SetDocument(ctx context.Context, id string, path *string) error {
	const query = `UPDATE students SET document_path = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, path, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set student document: %w", err)
	}
	return nil
}

// Delete removes a student and recounts the class it belonged to.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var classID string
		if err := tx.GetContext(ctx, &classID, `DELETE FROM students WHERE id = $1 RETURNING class_id`, id); err != nil {
			if err == sql.ErrNoRows {
				return err
			}
			return fmt.Errorf("delete student: %w", err)
		}
		const recount = `UPDATE classes SET enrolled_count = (SELECT COUNT(*) FROM students WHERE class_id = $1), updated_at = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, recount, classID, time.Now().UTC()); err != nil {
			return fmt.Errorf("recount class: %w", err)
		}
		return nil
	})
}

// Search returns up to limit students matching the term.
func (r *StudentRepository) Search(ctx context.Context, term string, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	students, _, err := r.List(ctx, models.StudentFilter{Search: term, PageSize: limit, SortBy: "name", SortOrder: "ASC"})
	if err != nil {
		return nil, err
	}
	return students, nil
}
