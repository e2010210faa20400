package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type auditRepository interface {
	CreateLog(ctx context.Context, log *models.AuditLog) error
	CreateView(ctx context.Context, view *models.AuditView) error
	ListLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
	ListViews(ctx context.Context, filter models.AuditFilter) ([]models.AuditView, int, error)
}

// auditRecorder is what mutating services need from the audit trail.
type auditRecorder interface {
	Record(ctx context.Context, actor models.Actor, action, table, recordID string, oldValues, newValues interface{})
}

// AuditService appends audit entries and serves the audit report.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends a mutation entry. Failures are logged and never surface to the caller.
func (s *AuditService) Record(ctx context.Context, actor models.Actor, action, table, recordID string, oldValues, newValues interface{}) {
	oldJSON, err := models.MarshalJSONB(oldValues)
	if err != nil {
		s.logger.Warn("failed to encode audit old values", zap.String("table", table), zap.Error(err))
	}
	newJSON, err := models.MarshalJSONB(newValues)
	if err != nil {
		s.logger.Warn("failed to encode audit new values", zap.String("table", table), zap.Error(err))
	}
	entry := &models.AuditLog{
		UserID:    actor.UserID(),
		Action:    action,
		TableName: table,
		OldValues: oldJSON,
		NewValues: newJSON,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}
	if recordID != "" {
		entry.RecordID = &recordID
	}
	if err := s.repo.CreateLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
	}
}

// RecordView appends a view entry. Failures are logged only.
func (s *AuditService) RecordView(ctx context.Context, actor models.Actor, viewType, resourceType, resourceID string) {
	view := &models.AuditView{
		UserID:       actor.UserID(),
		ViewType:     viewType,
		ResourceType: resourceType,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	}
	if resourceID != "" {
		view.ResourceID = &resourceID
	}
	if err := s.repo.CreateView(ctx, view); err != nil {
		s.logger.Warn("failed to write audit view", zap.String("resource_type", resourceType), zap.Error(err))
	}
}

// ListLogs returns audit logs with pagination metadata.
func (s *AuditService) ListLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	logs, total, err := s.repo.ListLogs(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, auditPagination(filter, total), nil
}

// AllLogs returns every audit log matching filter, for exports.
func (s *AuditService) AllLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	filter.PageSize = -1
	logs, _, err := s.repo.ListLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// ListViews returns audit views with pagination metadata.
func (s *AuditService) ListViews(ctx context.Context, filter models.AuditFilter) ([]models.AuditView, *models.Pagination, error) {
	views, total, err := s.repo.ListViews(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit views")
	}
	return views, auditPagination(filter, total), nil
}

func auditPagination(filter models.AuditFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
