package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/repository"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type pairReader interface {
	GetPair(ctx context.Context, id string) (*dto.PairView, error)
	LoadAllPairs(ctx context.Context) ([]dto.PairView, error)
}

type seatRepository interface {
	CreateWithSeat(ctx context.Context, student *models.Student) (int, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollRequest holds the draft student submitted by the enrollment form.
type EnrollRequest struct {
	Name          string               `json:"name" validate:"required,max=150"`
	Email         *string              `json:"email" validate:"omitempty,email"`
	Phone         string               `json:"phone" validate:"required,min=9,max=20"`
	NationalID    string               `json:"national_id" validate:"required,max=20"`
	BirthDate     string               `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Address       *string              `json:"address" validate:"omitempty,max=255"`
	CourseCode    string               `json:"course_code" validate:"required"`
	PairID        string               `json:"pair_id" validate:"required"`
	Variant       models.ClassVariant  `json:"variant" validate:"required,oneof=A B"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=dinheiro transferencia cartao"`
}

// EnrollmentServiceConfig carries the fixed program values stamped on new students.
type EnrollmentServiceConfig struct {
	Fee           float64
	DurationLabel string
	StartDate     time.Time
}

// EnrollmentService admits students into a class of a course pair.
type EnrollmentService struct {
	pairs     pairReader
	repo      seatRepository
	students  studentFinder
	audit     auditRecorder
	cache     cacheInvalidator
	metrics   *MetricsService
	cfg       EnrollmentServiceConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(pairs pairReader, repo seatRepository, students studentFinder, audit auditRecorder, cache cacheInvalidator, metrics *MetricsService, cfg EnrollmentServiceConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		pairs:     pairs,
		repo:      repo,
		students:  students,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll creates a student in the requested class. It fails with CapacityExceeded when
// the class has no free seat; in that case no row is written.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (*dto.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	name := cleanText(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	pair, err := s.pairs.GetPair(ctx, req.PairID)
	if err != nil {
		return nil, err
	}
	if !pair.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course pair is not open for enrollment")
	}
	if !containsString(pair.CourseCodes, req.CourseCode) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not offered by this pair")
	}
	class := pair.Class(req.Variant)
	if class == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if class.IsFull() {
		s.metrics.RecordEnrollment("full")
		return nil, appErrors.ErrCapacityExceeded
	}

	student, err := s.buildStudent(actor, req, name, pair, class)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.repo.CreateWithSeat(ctx, student)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClassFull):
			s.metrics.RecordEnrollment("full")
			return nil, appErrors.ErrCapacityExceeded
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		s.metrics.RecordEnrollment("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.metrics.RecordEnrollment("success")
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("class_id", class.ID),
		zap.Int("enrolled", enrolled),
		zap.Int("capacity", class.Capacity),
	)
	if s.audit != nil {
		s.audit.Record(ctx, actor, models.AuditActionInsert, models.TableStudents, student.ID, nil, student)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, rollupCachePattern); err != nil {
			s.logger.Warn("failed to invalidate rollup cache", zap.Error(err))
		}
	}

	result := &dto.EnrollmentResult{Student: *student}
	views, err := s.pairs.LoadAllPairs(ctx)
	if err != nil {
		s.logger.Warn("reload after enrollment failed", zap.String("pair_id", pair.ID), zap.Error(err))
		return result, nil
	}
	for i := range views {
		if views[i].ID == pair.ID {
			result.Pair = &views[i]
			break
		}
	}
	return result, nil
}

// OfferablePairs returns the active pairs with seat availability for the public form.
func (s *EnrollmentService) OfferablePairs(ctx context.Context) ([]dto.PublicPair, error) {
	views, err := s.pairs.LoadAllPairs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PublicPair, 0, len(views))
	for _, view := range views {
		if !view.Active {
			continue
		}
		public := dto.PublicPair{
			ID:             view.ID,
			Name:           view.Name,
			Period:         view.Period,
			PeriodLabel:    view.PeriodLabel,
			CourseCodes:    view.CourseCodes,
			CommonSubjects: view.CommonSubjects,
			Schedule:       view.WeeklySchedule,
			Classes:        make([]dto.PublicClass, 0, 2),
		}
		for _, class := range view.Classes() {
			public.Classes = append(public.Classes, dto.PublicClass{
				Variant:        class.Variant,
				RoomCode:       class.RoomCode,
				AvailableSeats: class.AvailableSeats,
				Full:           class.IsFull(),
				Schedule:       class.Schedule,
			})
		}
		out = append(out, public)
	}
	return out, nil
}

// Success returns the confirmation shown after a public enrollment.
func (s *EnrollmentService) Success(ctx context.Context, studentID string) (*dto.EnrollmentSuccess, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	success := &dto.EnrollmentSuccess{
		StudentNumber: student.StudentNumber,
		Name:          student.Name,
		CourseCode:    student.CourseCode,
		ShiftLabel:    student.ShiftLabel,
		AmountDue:     student.AmountPaid,
		DurationLabel: student.DurationLabel,
		StartDate:     student.StartDate.Format("2006-01-02"),
	}
	if pair, err := s.pairs.GetPair(ctx, student.PairID); err == nil {
		success.PairName = pair.Name
		for _, class := range pair.Classes() {
			if class.ID == student.ClassID {
				success.Variant = string(class.Variant)
			}
		}
	}
	return success, nil
}

func (s *EnrollmentService) buildStudent(actor models.Actor, req EnrollRequest, name string, pair *dto.PairView, class *dto.ClassView) (*models.Student, error) {
	now := s.now().UTC()
	student := &models.Student{
		ID:            uuid.NewString(),
		Name:          name,
		Phone:         strings.TrimSpace(req.Phone),
		NationalID:    strings.ToUpper(strings.TrimSpace(req.NationalID)),
		CourseCode:    req.CourseCode,
		ClassID:       class.ID,
		PairID:        pair.ID,
		ShiftLabel:    shiftLabel(pair.CoursePair),
		PaymentMethod: req.PaymentMethod,
		Status:        models.StudentStatusEnrolled,
		AmountPaid:    s.cfg.Fee,
		DurationLabel: s.cfg.DurationLabel,
		StartDate:     s.cfg.StartDate,
		CreatedBy:     actor.UserID(),
	}
	student.StudentNumber = studentNumber(now, student.ID)
	if student.StartDate.IsZero() {
		student.StartDate = now
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		student.Email = &email
	}
	if req.Address != nil {
		if address := cleanText(*req.Address); address != "" {
			student.Address = &address
		}
	}
	if req.BirthDate != "" {
		birth, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid birth_date")
		}
		student.BirthDate = &birth
	}
	return student, nil
}

// textPolicy strips all markup. A bluemonday policy is safe for concurrent use.
var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from free text and trims it.
func cleanText(value string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(value)))
}

func studentNumber(now time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("PA-%d-%s", now.Year(), suffix)
}

func shiftLabel(pair models.CoursePair) string {
	if pair.PeriodLabel != "" {
		return pair.PeriodLabel
	}
	switch pair.Period {
	case models.PeriodMorning:
		return "Manhã"
	case models.PeriodAfternoon:
		return "Tarde"
	}
	return string(pair.Period)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
