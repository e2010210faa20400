package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
	Delete(ctx context.Context, id string) error
}

type studentPairFinder interface {
	FindByID(ctx context.Context, id string) (*models.CoursePair, error)
}

// UpdateStudentRequest holds a partial update of a student's record.
type UpdateStudentRequest struct {
	Name          *string               `json:"name" validate:"omitempty,min=1,max=150"`
	Email         *string               `json:"email" validate:"omitempty,email"`
	Phone         *string               `json:"phone" validate:"omitempty,min=9,max=20"`
	NationalID    *string               `json:"national_id" validate:"omitempty,max=20"`
	BirthDate     *string               `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Address       *string               `json:"address" validate:"omitempty,max=255"`
	CourseCode    *string               `json:"course_code" validate:"omitempty,min=1"`
	PaymentMethod *models.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=dinheiro transferencia cartao"`
	Status        *models.StudentStatus `json:"status" validate:"omitempty,oneof=inscrito confirmado cancelado"`
	AmountPaid    *float64              `json:"amount_paid" validate:"omitempty,min=0"`
}

// UpdateStatusRequest changes only the status. Any status may move to any other.
type UpdateStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required,oneof=inscrito confirmado cancelado"`
}

// StudentService handles student administration.
type StudentService struct {
	repo      studentRepository
	pairs     studentPairFinder
	audit     auditRecorder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, pairs studentPairFinder, audit auditRecorder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, pairs: pairs, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Update applies a partial update and returns the stored record.
func (s *StudentService) Update(ctx context.Context, actor models.Actor, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *current
	updated := *current

	if req.Name != nil {
		updated.Name = cleanText(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		updated.Email = &email
		if email == "" {
			updated.Email = nil
		}
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.NationalID != nil {
		updated.NationalID = strings.ToUpper(strings.TrimSpace(*req.NationalID))
	}
	if req.BirthDate != nil {
		birth, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid birth_date")
		}
		updated.BirthDate = &birth
	}
	if req.Address != nil {
		updated.Address = nil
		if address := cleanText(*req.Address); address != "" {
			updated.Address = &address
		}
	}
	if req.CourseCode != nil && *req.CourseCode != current.CourseCode {
		if err := s.checkCourse(ctx, current.PairID, *req.CourseCode); err != nil {
			return nil, err
		}
		updated.CourseCode = *req.CourseCode
	}
	if req.PaymentMethod != nil {
		updated.PaymentMethod = *req.PaymentMethod
	}
	if req.Status != nil {
		updated.Status = *req.Status
	}
	if req.AmountPaid != nil {
		updated.AmountPaid = *req.AmountPaid
	}
	if updated.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.changed(ctx, actor, models.AuditActionUpdate, id, before, updated)
	return s.Get(ctx, id)
}

// UpdateStatus changes a student's status.
func (s *StudentService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req UpdateStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == req.Status {
		return current, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	s.changed(ctx, actor, models.AuditActionUpdate, id,
		map[string]interface{}{"status": current.Status},
		map[string]interface{}{"status": req.Status},
	)
	current.Status = req.Status
	return current, nil
}

// Delete removes a student; the class count is recomputed in the same transaction.
func (s *StudentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.changed(ctx, actor, models.AuditActionDelete, id, current, nil)
	return nil
}

// checkCourse rejects a course code the student's pair does not offer.
func (s *StudentService) checkCourse(ctx context.Context, pairID, code string) error {
	pair, err := s.pairs.FindByID(ctx, pairID)
	if err != nil {
		return notFoundOr(err, "course pair not found", "failed to load course pair")
	}
	if !containsString(pair.CourseCodes, code) {
		return appErrors.Clone(appErrors.ErrValidation, "course is not offered by this pair")
	}
	return nil
}

func (s *StudentService) changed(ctx context.Context, actor models.Actor, action, id string, oldValues, newValues interface{}) {
	if s.audit != nil {
		s.audit.Record(ctx, actor, action, models.TableStudents, id, oldValues, newValues)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, rollupCachePattern); err != nil {
			s.logger.Warn("failed to invalidate rollup cache", zap.Error(err))
		}
	}
}

func validStatus(status models.StudentStatus) bool {
	for _, known := range models.StudentStatuses {
		if status == known {
			return true
		}
	}
	return false
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
