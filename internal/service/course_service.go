package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

const courseCacheKey = "catalog:courses"

type courseRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

// CourseService serves the fixed course catalog. The active list changes rarely and is
// cached.
type CourseService struct {
	repo   courseRepository
	cache  rollupCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, cache rollupCache, ttl time.Duration, logger *zap.Logger) *CourseService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Active returns the offered courses.
func (s *CourseService) Active(ctx context.Context) ([]models.Course, error) {
	if s.cache != nil {
		var cached []models.Course
		hit, err := s.cache.Get(ctx, courseCacheKey, &cached)
		if err != nil {
			s.logger.Warn("course cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}
	courses, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, courseCacheKey, courses, s.ttl); err != nil {
			s.logger.Warn("course cache write failed", zap.Error(err))
		}
	}
	return courses, nil
}

// List returns the catalog, optionally only active courses.
func (s *CourseService) List(ctx context.Context, activeOnly bool) ([]models.Course, error) {
	courses, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, notFoundOr(err, "courses not found", "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Get returns one course by code.
func (s *CourseService) Get(ctx context.Context, code string) (*models.Course, error) {
	course, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	return course, nil
}
