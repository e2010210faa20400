package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

func newStudentFixture() (*fakeStore, *fakeAudit, *StudentService) {
	store := newFakeStore()
	audit := &fakeAudit{}
	return store, audit, NewStudentService(fakeStudentRepo{store}, fakePairRepo{store}, audit, &fakeInvalidator{}, nil, nil)
}

func firstStudent(store *fakeStore, classID string) models.Student {
	return store.studentsIn(classID)[0]
}

func TestStudentServiceListPagination(t *testing.T) {
	store, _, svc := newStudentFixture()
	_, classA, _ := store.seedPair("Engenharias", 25, 0, 0)
	store.seedStudents(classA, 5)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 5, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), models.StudentFilter{Status: "desistente"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	_, _, svc := newStudentFixture()

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceUpdate(t *testing.T) {
	store, audit, svc := newStudentFixture()
	_, classA, _ := store.seedPair("Engenharias", 25, 0, 0)
	store.seedStudents(classA, 1)
	id := firstStudent(store, classA).ID

	name := "  Ana Paula "
	method := models.PaymentCard
	updated, err := svc.Update(context.Background(), adminActor(), id, UpdateStudentRequest{Name: &name, PaymentMethod: &method})
	require.NoError(t, err)
	assert.Equal(t, "Ana Paula", updated.Name)
	assert.Equal(t, models.PaymentCard, updated.PaymentMethod)
	assert.Equal(t, 1, audit.count(models.AuditActionUpdate, models.TableStudents))

	empty := " "
	_, err = svc.Update(context.Background(), adminActor(), id, UpdateStudentRequest{Name: &empty})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceUpdateSanitizesFreeText(t *testing.T) {
	store, _, svc := newStudentFixture()
	_, classA, _ := store.seedPair("Engenharias", 25, 0, 0)
	store.seedStudents(classA, 1)
	id := firstStudent(store, classA).ID

	name := "<b>Ana</b> Paula<script>alert(1)</script>"
	address := " <a href=\"x\">Rua 1</a>, Luanda "
	updated, err := svc.Update(context.Background(), adminActor(), id, UpdateStudentRequest{Name: &name, Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "Ana Paula", updated.Name)
	require.NotNil(t, updated.Address)
	assert.Equal(t, "Rua 1, Luanda", *updated.Address)

	markupOnly := "<script>alert(1)</script>"
	_, err = svc.Update(context.Background(), adminActor(), id, UpdateStudentRequest{Name: &markupOnly})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceUpdateCourseMustBelongToPair(t *testing.T) {
	store, audit, svc := newStudentFixture()
	_, classA, _ := store.seedPair("Engenharias", 25, 0, 0)
	store.seedStudents(classA, 1)
	id := firstStudent(store, classA).ID

	foreign := "MED"
	_, err := svc.Update(context.Background(), adminActor(), id, UpdateStudentRequest{CourseCode: &foreign})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "ENG-CIV", store.students[id].CourseCode)
	assert.Equal(t, 0, audit.count(models.AuditActionUpdate, models.TableStudents))

	offered := "ENG-INF"
	updated, err := svc.Update(context.Background(), adminActor(), id, UpdateStudentRequest{CourseCode: &offered})
	require.NoError(t, err)
	assert.Equal(t, "ENG-INF", updated.CourseCode)
}

func TestStudentServiceStatusIsFreeForm(t *testing.T) {
	store, audit, svc := newStudentFixture()
	_, classA, _ := store.seedPair("Engenharias", 25, 0, 0)
	store.seedStudents(classA, 1)
	id := firstStudent(store, classA).ID

	for _, status := range []models.StudentStatus{models.StudentStatusCancelled, models.StudentStatusEnrolled, models.StudentStatusConfirmed} {
		student, err := svc.UpdateStatus(context.Background(), adminActor(), id, UpdateStatusRequest{Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, student.Status)
	}
	assert.Equal(t, 3, audit.count(models.AuditActionUpdate, models.TableStudents))

	_, err := svc.UpdateStatus(context.Background(), adminActor(), id, UpdateStatusRequest{Status: "pendente"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceDeleteRecountsClass(t *testing.T) {
	store, audit, svc := newStudentFixture()
	_, classA, _ := store.seedPair("Engenharias", 25, 3, 0)
	store.seedStudents(classA, 3)
	id := firstStudent(store, classA).ID

	require.NoError(t, svc.Delete(context.Background(), adminActor(), id))
	assert.Equal(t, 2, store.classes[classA].EnrolledCount)
	assert.Equal(t, 1, audit.count(models.AuditActionDelete, models.TableStudents))

	assert.ErrorIs(t, svc.Delete(context.Background(), adminActor(), id), appErrors.ErrNotFound)
}
