package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

// AuditRepository appends and lists audit log and audit view entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateLog appends a mutation record.
func (r *AuditRepository) CreateLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :table_name, :record_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// CreateView appends a view record.
func (r *AuditRepository) CreateView(ctx context.Context, view *models.AuditView) error {
	if view.ID == "" {
		view.ID = uuid.NewString()
	}
	if view.CreatedAt.IsZero() {
		view.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_views (id, user_id, view_type, resource_type, resource_id, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :view_type, :resource_type, :resource_id, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, view); err != nil {
		return fmt.Errorf("create audit view: %w", err)
	}
	return nil
}

func auditConditions(filter models.AuditFilter, includeTable bool) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if includeTable && filter.TableName != "" {
		args = append(args, filter.TableName)
		conditions = append(conditions, fmt.Sprintf("table_name = $%d", len(args)))
	}
	if includeTable && filter.Action != "" {
		args = append(args, strings.ToUpper(filter.Action))
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func auditPage(filter models.AuditFilter) (int, int) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return size, (page - 1) * size
}

// ListLogs returns audit logs newest first with the total count. A PageSize below zero
// disables pagination.
func (r *AuditRepository) ListLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	where, args := auditConditions(filter, true)
	query := "SELECT id, user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at FROM audit_logs" +
		where + " ORDER BY created_at DESC"
	if filter.PageSize >= 0 {
		size, offset := auditPage(filter)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, offset)
	}
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return logs, total, nil
}

// ListViews returns audit views newest first with the total count.
func (r *AuditRepository) ListViews(ctx context.Context, filter models.AuditFilter) ([]models.AuditView, int, error) {
	where, args := auditConditions(filter, false)
	size, offset := auditPage(filter)
	query := "SELECT id, user_id, view_type, resource_type, resource_id, ip_address, user_agent, created_at FROM audit_views" +
		where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", size, offset)
	var views []models.AuditView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit views: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_views"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit views: %w", err)
	}
	return views, total, nil
}
