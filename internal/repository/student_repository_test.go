package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

var studentRowColumns = []string{"id", "student_number", "name", "email", "phone", "national_id", "birth_date", "address", "course_code", "class_id", "pair_id", "shift_label",
	"payment_method", "status", "amount_paid", "duration_label", "start_date", "document_path", "created_at", "updated_at", "created_by"}

func studentRow(rows *sqlmock.Rows, id, name string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "PA-2025-"+id, name, nil, "923000000", "00123LA045", nil, nil, "ENG-CIV", "c1", "p1", "Manhã",
		"dinheiro", "inscrito", 15000.0, "3 meses", now, nil, now, now, nil)
}

func TestStudentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRow(studentRow(sqlmock.NewRows(studentRowColumns), "s1", "Ana"), "s2", "Bruno")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE class_id = $1 ORDER BY created_at ASC")).
		WithArgs("c1").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, models.StudentStatusEnrolled, students[0].Status)
	assert.Nil(t, students[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRow(sqlmock.NewRows(studentRowColumns), "s1", "Ana")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE 1=1 AND pair_id = $1 AND status = $2 AND (LOWER(name) LIKE $3 OR phone LIKE $3 OR LOWER(national_id) LIKE $3 OR LOWER(student_number) LIKE $3) ORDER BY name ASC LIMIT 10 OFFSET 10")).
		WithArgs("p1", models.StudentStatusConfirmed, "%ana%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1 AND pair_id = $1")).
		WithArgs("p1", models.StudentStatusConfirmed, "%ana%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		PairID: "p1", Status: models.StudentStatusConfirmed, Search: "Ana", Page: 2, PageSize: 10, SortBy: "name", SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(studentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.StudentFilter{SortBy: "name; DROP TABLE students"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteRecountsClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM students WHERE id = $1 RETURNING class_id")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow("c1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET enrolled_count = (SELECT COUNT(*) FROM students WHERE class_id = $1)")).
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM students").WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.StudentStatusCancelled, sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "s1", models.StudentStatusCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}
