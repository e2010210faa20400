package dto

import (
	"time"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type      models.ReportType    `json:"type" validate:"required"`
	Format    models.ReportFormat  `json:"format" validate:"required,oneof=csv pdf"`
	From      *time.Time           `json:"from,omitempty"`
	To        *time.Time           `json:"to,omitempty"`
	PairID    string               `json:"pairId,omitempty"`
	Status    models.StudentStatus `json:"status,omitempty"`
	TableName string               `json:"tableName,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job state and, once finished, a signed download URL.
type ReportStatusResponse struct {
	ID          string              `json:"id"`
	Type        models.ReportType   `json:"type"`
	Status      models.ReportStatus `json:"status"`
	DownloadURL *string             `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty"`
	Error       *string             `json:"error,omitempty"`
	FinishedAt  *time.Time          `json:"finishedAt,omitempty"`
}

// SearchResult groups global search hits.
type SearchResult struct {
	Query    string           `json:"query"`
	Students []models.Student `json:"students"`
	Pairs    []PairHit        `json:"pairs"`
}

// PairHit is a pair matched by name or course code.
type PairHit struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Period      models.Period `json:"period"`
	CourseCodes []string      `json:"courseCodes"`
	Active      bool          `json:"active"`
}

// SessionResponse describes the caller for GET /me.
type SessionResponse struct {
	UserID      string              `json:"userId"`
	Email       string              `json:"email"`
	Roles       []models.Role       `json:"roles"`
	Permissions []models.Permission `json:"permissions"`
}
