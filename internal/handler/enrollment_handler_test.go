package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/middleware"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type enrollmentServiceMock struct {
	result    *dto.EnrollmentResult
	err       error
	lastActor models.Actor
	lastReq   service.EnrollRequest
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, actor models.Actor, req service.EnrollRequest) (*dto.EnrollmentResult, error) {
	m.lastActor = actor
	m.lastReq = req
	return m.result, m.err
}

func (m *enrollmentServiceMock) OfferablePairs(ctx context.Context) ([]dto.PublicPair, error) {
	return []dto.PublicPair{}, nil
}

func (m *enrollmentServiceMock) Success(ctx context.Context, studentID string) (*dto.EnrollmentSuccess, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func enrollPayload() []byte {
	payload, _ := json.Marshal(map[string]string{
		"name":           "Ana Domingos",
		"phone":          "923000000",
		"national_id":    "001234567LA041",
		"course_code":    "ENG-CIV",
		"pair_id":        "p1",
		"variant":        "A",
		"payment_method": "dinheiro",
	})
	return payload
}

func TestEnrollmentHandlerCreatesStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{result: &dto.EnrollmentResult{Student: models.Student{ID: "s-1"}}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/enrollments", enrollPayload())
	c.Set(middleware.ContextSessionKey, adminSession())

	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.VariantA, mockSvc.lastReq.Variant)
	require.NotNil(t, mockSvc.lastActor.UserID())
	assert.Equal(t, "admin", *mockSvc.lastActor.UserID())
}

func TestEnrollmentHandlerPublicFormIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{result: &dto.EnrollmentResult{Student: models.Student{ID: "s-1"}}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/public/enrollments", enrollPayload())
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, mockSvc.lastActor.UserID())
}

func TestEnrollmentHandlerFullClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{err: appErrors.ErrCapacityExceeded})

	c, w := newGinContext(http.MethodPost, "/enrollments", enrollPayload())
	handler.Enroll(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "turma cheia")
}

func TestEnrollmentHandlerSuccessNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/public/enrollments/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	handler.Success(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
