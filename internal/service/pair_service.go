package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/schedule"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type coursePairRepository interface {
	List(ctx context.Context, filter models.CoursePairFilter) ([]models.CoursePair, error)
	FindByID(ctx context.Context, id string) (*models.CoursePair, error)
	CreateWithClasses(ctx context.Context, pair *models.CoursePair, classes []*models.Class) error
	Update(ctx context.Context, pair *models.CoursePair) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type classRepository interface {
	ListByPair(ctx context.Context, pairID string) ([]models.Class, error)
	FindByPairAndVariant(ctx context.Context, pairID string, variant models.ClassVariant) (*models.Class, error)
	Update(ctx context.Context, class *models.Class) error
	UpdateEnrolledCount(ctx context.Context, id string, count int) error
}

type classStudentReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	CountByPair(ctx context.Context, pairID string) (int, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, patterns ...string) error
}

// ClassInput describes one class of a new pair.
type ClassInput struct {
	RoomCode string `json:"room_code" validate:"required,max=30"`
	Capacity int    `json:"capacity" validate:"min=0,max=500"`
}

// CreatePairRequest holds payload for creating a pair with its two classes.
type CreatePairRequest struct {
	Name           string                `json:"name" validate:"required,max=150"`
	Period         models.Period         `json:"period" validate:"required,oneof=manha tarde"`
	PeriodLabel    string                `json:"period_label" validate:"max=100"`
	CourseCodes    []string              `json:"course_codes" validate:"required,min=1,dive,required"`
	CommonSubjects []string              `json:"common_subjects" validate:"omitempty,dive,required"`
	WeeklySchedule models.WeeklySchedule `json:"weekly_schedule"`
	Active         *bool                 `json:"active"`
	ClassA         ClassInput            `json:"class_a"`
	ClassB         ClassInput            `json:"class_b"`
}

// ClassChanges are the field-level updates allowed on one class of a pair.
type ClassChanges struct {
	RoomCode       *string               `json:"room_code" validate:"omitempty,min=1,max=30"`
	Capacity       *int                  `json:"capacity" validate:"omitempty,min=0,max=500"`
	EnrolledCount  *int                  `json:"enrolled_count" validate:"omitempty,min=0"`
	WeeklySchedule models.WeeklySchedule `json:"weekly_schedule"`
}

// UpdatePairRequest holds a partial update of a pair and its classes.
type UpdatePairRequest struct {
	Name           *string               `json:"name" validate:"omitempty,min=1,max=150"`
	Period         *models.Period        `json:"period" validate:"omitempty,oneof=manha tarde"`
	PeriodLabel    *string               `json:"period_label" validate:"omitempty,max=100"`
	CourseCodes    []string              `json:"course_codes" validate:"omitempty,dive,required"`
	CommonSubjects []string              `json:"common_subjects" validate:"omitempty,dive,required"`
	WeeklySchedule models.WeeklySchedule `json:"weekly_schedule"`
	Active         *bool                 `json:"active"`
	ClassA         *ClassChanges         `json:"class_a"`
	ClassB         *ClassChanges         `json:"class_b"`
}

func (r UpdatePairRequest) changesFor(variant models.ClassVariant) *ClassChanges {
	if variant == models.VariantB {
		return r.ClassB
	}
	return r.ClassA
}

// PairService loads course pairs with their classes and students, reconciling stored
// enrollment counts against the real student rows, and applies pair mutations.
type PairService struct {
	pairs     coursePairRepository
	classes   classRepository
	students  classStudentReader
	rooms     roomResolver
	audit     auditRecorder
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPairService constructs the pair service.
func NewPairService(pairs coursePairRepository, classes classRepository, students classStudentReader, rooms roomResolver, audit auditRecorder, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PairService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairService{
		pairs:     pairs,
		classes:   classes,
		students:  students,
		rooms:     rooms,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// LoadAllPairs returns every pair with reconciled class counts. A class whose stored
// enrolled count differs from its student rows is corrected in the store. Failing to
// load any class's students fails the whole load.
func (s *PairService) LoadAllPairs(ctx context.Context) ([]dto.PairView, error) {
	start := time.Now()
	pairs, err := s.pairs.List(ctx, models.CoursePairFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course pairs")
	}
	views := make([]dto.PairView, 0, len(pairs))
	for _, pair := range pairs {
		view, err := s.buildView(ctx, pair)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	s.metrics.ObservePairLoad(time.Since(start))
	return views, nil
}

// GetPair returns the reconciled view of one pair.
func (s *PairService) GetPair(ctx context.Context, id string) (*dto.PairView, error) {
	pair, err := s.findPair(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, *pair)
}

// CreatePair inserts a pair with class A on the given schedule and class B on its mirror.
func (s *PairService) CreatePair(ctx context.Context, actor models.Actor, req CreatePairRequest) (*dto.PairView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	week := schedule.Normalize(req.WeeklySchedule)
	pair := &models.CoursePair{
		Name:           strings.TrimSpace(req.Name),
		Period:         req.Period,
		PeriodLabel:    strings.TrimSpace(req.PeriodLabel),
		CourseCodes:    req.CourseCodes,
		CommonSubjects: req.CommonSubjects,
		WeeklySchedule: week,
		Active:         active,
	}
	if pair.CommonSubjects == nil {
		pair.CommonSubjects = []string{}
	}

	inputs := map[models.ClassVariant]ClassInput{models.VariantA: req.ClassA, models.VariantB: req.ClassB}
	classes := make([]*models.Class, 0, 2)
	for _, variant := range []models.ClassVariant{models.VariantA, models.VariantB} {
		input := inputs[variant]
		room, err := s.rooms.FindOrCreateRoom(ctx, actor, input.RoomCode)
		if err != nil {
			return nil, err
		}
		classes = append(classes, &models.Class{
			Variant:        variant,
			RoomCode:       room.Code,
			Capacity:       input.Capacity,
			WeeklySchedule: schedule.ForVariant(week, variant),
		})
	}

	if err := s.pairs.CreateWithClasses(ctx, pair, classes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course pair")
	}
	s.recordAudit(ctx, actor, models.AuditActionInsert, models.TableCoursePairs, pair.ID, nil, pair)
	for _, class := range classes {
		s.recordAudit(ctx, actor, models.AuditActionInsert, models.TableClasses, class.ID, nil, class)
	}
	s.invalidate(ctx)
	s.logger.Info("course pair created", zap.String("pair_id", pair.ID), zap.String("name", pair.Name))
	return s.reloadPair(ctx, pair.ID)
}

// UpdatePair applies field-level changes to a pair and its classes, then reloads every
// pair. A new pair schedule is written to class A and its mirror to class B unless the
// request sets a class schedule explicitly.
func (s *PairService) UpdatePair(ctx context.Context, actor models.Actor, id string, req UpdatePairRequest) (*dto.PairView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	pair, err := s.findPair(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *pair

	pairChanged := false
	if req.Name != nil {
		pair.Name = strings.TrimSpace(*req.Name)
		pairChanged = true
	}
	if req.Period != nil {
		pair.Period = *req.Period
		pairChanged = true
	}
	if req.PeriodLabel != nil {
		pair.PeriodLabel = strings.TrimSpace(*req.PeriodLabel)
		pairChanged = true
	}
	if req.CourseCodes != nil {
		pair.CourseCodes = req.CourseCodes
		pairChanged = true
	}
	if req.CommonSubjects != nil {
		pair.CommonSubjects = req.CommonSubjects
		pairChanged = true
	}
	if req.Active != nil {
		pair.Active = *req.Active
		pairChanged = true
	}
	scheduleChanged := req.WeeklySchedule != nil
	if scheduleChanged {
		pair.WeeklySchedule = schedule.Normalize(req.WeeklySchedule)
		pairChanged = true
	}

	if pairChanged {
		if err := s.pairs.Update(ctx, pair); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course pair")
		}
		s.recordAudit(ctx, actor, models.AuditActionUpdate, models.TableCoursePairs, pair.ID, before, pair)
	}

	for _, variant := range []models.ClassVariant{models.VariantA, models.VariantB} {
		changes := req.changesFor(variant)
		if changes == nil && !scheduleChanged {
			continue
		}
		if err := s.updateClass(ctx, actor, pair, variant, changes, scheduleChanged); err != nil {
			return nil, err
		}
	}

	s.invalidate(ctx)
	return s.reloadPair(ctx, pair.ID)
}

func (s *PairService) updateClass(ctx context.Context, actor models.Actor, pair *models.CoursePair, variant models.ClassVariant, changes *ClassChanges, scheduleChanged bool) error {
	class, err := s.classes.FindByPairAndVariant(ctx, pair.ID, variant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	before := *class

	if scheduleChanged {
		class.WeeklySchedule = schedule.ForVariant(pair.WeeklySchedule, variant)
	}
	if changes != nil {
		if changes.RoomCode != nil && strings.TrimSpace(*changes.RoomCode) != class.RoomCode {
			room, err := s.rooms.FindOrCreateRoom(ctx, actor, *changes.RoomCode)
			if err != nil {
				return err
			}
			class.RoomCode = room.Code
		}
		if changes.Capacity != nil {
			class.Capacity = *changes.Capacity
		}
		if changes.EnrolledCount != nil {
			class.EnrolledCount = *changes.EnrolledCount
		}
		if changes.WeeklySchedule != nil {
			class.WeeklySchedule = schedule.Normalize(changes.WeeklySchedule)
		}
	}

	if err := s.classes.Update(ctx, class); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, models.TableClasses, class.ID, before, class)
	return nil
}

// DeletePair removes a pair and its classes and returns the reloaded pair set. Pairs that
// still have students are refused.
func (s *PairService) DeletePair(ctx context.Context, actor models.Actor, id string) ([]dto.PairView, error) {
	pair, err := s.findPair(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.students.CountByPair(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pair students")
	}
	if count > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pair still has enrolled students")
	}
	if err := s.pairs.Delete(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course pair")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, models.TableCoursePairs, id, pair, nil)
	s.invalidate(ctx)
	s.logger.Info("course pair deleted", zap.String("pair_id", id))
	return s.LoadAllPairs(ctx)
}

// ToggleActive flips whether a pair is offered for enrollment.
func (s *PairService) ToggleActive(ctx context.Context, actor models.Actor, id string) (*dto.PairView, error) {
	pair, err := s.findPair(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !pair.Active
	if err := s.pairs.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course pair")
	}
	s.recordAudit(ctx, actor, models.AuditActionUpdate, models.TableCoursePairs, id,
		map[string]bool{"active": pair.Active}, map[string]bool{"active": active})
	s.invalidate(ctx)
	return s.reloadPair(ctx, id)
}

// reloadPair reloads every pair and returns the one with id.
func (s *PairService) reloadPair(ctx context.Context, id string) (*dto.PairView, error) {
	views, err := s.LoadAllPairs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course pair not found")
}

func (s *PairService) findPair(ctx context.Context, id string) (*models.CoursePair, error) {
	pair, err := s.pairs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course pair not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course pair")
	}
	return pair, nil
}

func (s *PairService) buildView(ctx context.Context, pair models.CoursePair) (*dto.PairView, error) {
	classes, err := s.classes.ListByPair(ctx, pair.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	view := &dto.PairView{CoursePair: pair}
	for _, class := range classes {
		classView, err := s.reconcile(ctx, pair, class)
		if err != nil {
			return nil, err
		}
		switch class.Variant {
		case models.VariantA:
			view.ClassA = classView
		case models.VariantB:
			view.ClassB = classView
		}
		view.TotalEnrolled += classView.EnrolledCount
		view.TotalCapacity += classView.Capacity
	}
	return view, nil
}

// reconcile loads the class's students and repairs a drifted stored count.
func (s *PairService) reconcile(ctx context.Context, pair models.CoursePair, class models.Class) (*dto.ClassView, error) {
	students, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		s.logger.Error("failed to load class students",
			zap.String("pair_id", pair.ID),
			zap.String("class_id", class.ID),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	if students == nil {
		students = []models.Student{}
	}

	actual := len(students)
	corrected := false
	if actual != class.EnrolledCount {
		s.logger.Info("reconciling class enrolled count",
			zap.String("class_id", class.ID),
			zap.Int("stored", class.EnrolledCount),
			zap.Int("actual", actual),
		)
		if err := s.classes.UpdateEnrolledCount(ctx, class.ID, actual); err != nil {
			s.logger.Warn("failed to persist reconciled count", zap.String("class_id", class.ID), zap.Error(err))
		} else {
			s.metrics.RecordCorrection()
		}
		class.EnrolledCount = actual
		corrected = true
	}

	return &dto.ClassView{
		Class:            class,
		Students:         students,
		AvailableSeats:   availableSeats(class.Capacity, actual),
		OccupancyPercent: occupancy(actual, class.Capacity),
		Schedule:         schedule.ResolveClassSchedule(pair, class),
		Corrected:        corrected,
	}, nil
}

func (s *PairService) recordAudit(ctx context.Context, actor models.Actor, action, table, recordID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, actor, action, table, recordID, oldValues, newValues)
}

func (s *PairService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, rollupCachePattern); err != nil {
		s.logger.Warn("failed to invalidate rollup cache", zap.Error(err))
	}
}

func availableSeats(capacity, enrolled int) int {
	if enrolled >= capacity {
		return 0
	}
	return capacity - enrolled
}

func occupancy(enrolled, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(float64(enrolled)/float64(capacity)*1000) / 10
}
