package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

var pairRowColumns = []string{"id", "name", "period", "period_label", "course_codes", "common_subjects", "weekly_schedule", "active", "created_at", "updated_at"}

func TestCoursePairRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoursePairRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(pairRowColumns).
		AddRow("p1", "Engenharias Manhã", "manha", "Manhã (08h-12h)", "{ENG-CIV,ENG-INF}", "{Matemática,Física}", `{"segunda":"Física, Desenho","terca":"–"}`, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + pairColumns + " FROM course_pairs WHERE active = TRUE ORDER BY period ASC, name ASC")).
		WillReturnRows(rows)

	pairs, err := repo.List(context.Background(), models.CoursePairFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, []string{"ENG-CIV", "ENG-INF"}, []string(pairs[0].CourseCodes))
	assert.Equal(t, "Física, Desenho", pairs[0].WeeklySchedule["segunda"])
	assert.Equal(t, models.PeriodMorning, pairs[0].Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursePairRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoursePairRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_pairs WHERE (LOWER(name) LIKE $1 OR LOWER(array_to_string(course_codes, ' ')) LIKE $1)")).
		WithArgs("%saude%").
		WillReturnRows(sqlmock.NewRows(pairRowColumns))

	pairs, err := repo.List(context.Background(), models.CoursePairFilter{Search: "Saude"})
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursePairRepositoryCreateWithClasses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoursePairRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO course_pairs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	pair := &models.CoursePair{Name: "Saúde Tarde", Period: models.PeriodAfternoon}
	classA := &models.Class{Variant: models.VariantA, RoomCode: "S1", Capacity: 25}
	classB := &models.Class{Variant: models.VariantB, RoomCode: "S2", Capacity: 25}
	require.NoError(t, repo.CreateWithClasses(context.Background(), pair, []*models.Class{classA, classB}))

	assert.NotEmpty(t, pair.ID)
	assert.Equal(t, pair.ID, classA.PairID)
	assert.Equal(t, pair.ID, classB.PairID)
	assert.NotEqual(t, classA.ID, classB.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursePairRepositoryDeleteRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoursePairRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE pair_id = $1")).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_pairs WHERE id = $1")).WithArgs("p1").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursePairRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCoursePairRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_pairs SET active = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(false, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), "p1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
