package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

// Every cached rollup lives under this prefix so one pattern invalidates them all.
const (
	rollupCachePattern = "dashboard:*"
	summaryCacheKey    = "dashboard:summary"
	financeCacheKey    = "dashboard:finance"
)

type pairLoader interface {
	LoadAllPairs(ctx context.Context) ([]dto.PairView, error)
}

type rollupCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	Fee         float64
	RecentLimit int
}

// DashboardService composes the enrollment dashboard and the finance summary from the
// reconciled pair view, never from raw stored counts.
type DashboardService struct {
	pairs  pairLoader
	cache  rollupCache
	logger *zap.Logger
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(pairs pairLoader, cache rollupCache, cfg DashboardServiceConfig, logger *zap.Logger) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{pairs: pairs, cache: cache, logger: logger, cfg: cfg}
}

// Summary returns dashboard figures and whether they came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	var cached dto.DashboardSummary
	if s.tryCache(ctx, summaryCacheKey, &cached) {
		return &cached, true, nil
	}
	views, err := s.pairs.LoadAllPairs(ctx)
	if err != nil {
		return nil, false, err
	}
	summary := BuildDashboardSummary(views, s.cfg.RecentLimit)
	s.persistCache(ctx, summaryCacheKey, summary)
	return summary, false, nil
}

// Finance returns payment totals and whether they came from cache.
func (s *DashboardService) Finance(ctx context.Context) (*dto.FinanceSummary, bool, error) {
	var cached dto.FinanceSummary
	if s.tryCache(ctx, financeCacheKey, &cached) {
		return &cached, true, nil
	}
	views, err := s.pairs.LoadAllPairs(ctx)
	if err != nil {
		return nil, false, err
	}
	summary := BuildFinanceSummary(views, s.cfg.Fee)
	s.persistCache(ctx, financeCacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// BuildDashboardSummary aggregates the reconciled views.
func BuildDashboardSummary(views []dto.PairView, recentLimit int) *dto.DashboardSummary {
	summary := &dto.DashboardSummary{
		ByStatus:       map[string]int{},
		ByPeriod:       map[string]int{},
		ByVariant:      map[string]int{},
		ByCourse:       map[string]int{},
		PairOccupancy:  make([]dto.PairOccupancy, 0, len(views)),
		RecentStudents: []dto.RecentEnrolled{},
	}
	var recent []dto.RecentEnrolled
	var recentAt []time.Time
	for _, view := range views {
		if view.Active {
			summary.ActivePairs++
		}
		row := dto.PairOccupancy{PairID: view.ID, PairName: view.Name, Active: view.Active}
		for _, class := range view.Classes() {
			summary.TotalStudents += class.EnrolledCount
			summary.TotalCapacity += class.Capacity
			summary.ByPeriod[string(view.Period)] += class.EnrolledCount
			summary.ByVariant[string(class.Variant)] += class.EnrolledCount
			if class.Variant == models.VariantA {
				row.EnrolledA, row.CapacityA = class.EnrolledCount, class.Capacity
			} else {
				row.EnrolledB, row.CapacityB = class.EnrolledCount, class.Capacity
			}
			for _, student := range class.Students {
				summary.ByStatus[string(student.Status)]++
				summary.ByCourse[student.CourseCode]++
				recent = append(recent, dto.RecentEnrolled{
					StudentID:     student.ID,
					StudentNumber: student.StudentNumber,
					Name:          student.Name,
					PairName:      view.Name,
					Variant:       string(class.Variant),
					CreatedAt:     student.CreatedAt.UTC().Format(time.RFC3339),
				})
				recentAt = append(recentAt, student.CreatedAt)
			}
		}
		row.Rate = occupancy(row.EnrolledA+row.EnrolledB, row.CapacityA+row.CapacityB)
		summary.PairOccupancy = append(summary.PairOccupancy, row)
	}
	summary.OccupancyRate = occupancy(summary.TotalStudents, summary.TotalCapacity)

	order := make([]int, len(recent))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return recentAt[order[i]].After(recentAt[order[j]]) })
	for i := 0; i < len(order) && i < recentLimit; i++ {
		summary.RecentStudents = append(summary.RecentStudents, recent[order[i]])
	}
	return summary
}

// BuildFinanceSummary totals payments of non-cancelled students.
func BuildFinanceSummary(views []dto.PairView, fee float64) *dto.FinanceSummary {
	summary := &dto.FinanceSummary{
		Fee:             fee,
		ByPaymentMethod: map[string]float64{},
		ByCourse:        map[string]float64{},
		ByPair:          make([]dto.PairRevenue, 0, len(views)),
	}
	for _, view := range views {
		revenue := dto.PairRevenue{PairID: view.ID, PairName: view.Name}
		for _, class := range view.Classes() {
			for _, student := range class.Students {
				if student.Status == models.StudentStatusCancelled {
					summary.Cancelled++
					continue
				}
				summary.PayingStudents++
				summary.CollectedAmount += student.AmountPaid
				summary.ByPaymentMethod[string(student.PaymentMethod)] += student.AmountPaid
				summary.ByCourse[student.CourseCode] += student.AmountPaid
				revenue.Students++
				revenue.Collected += student.AmountPaid
			}
		}
		summary.ByPair = append(summary.ByPair, revenue)
	}
	summary.ExpectedAmount = float64(summary.PayingStudents) * fee
	summary.Outstanding = math.Max(0, summary.ExpectedAmount-summary.CollectedAmount)
	return summary
}
