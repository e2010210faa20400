package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates the reports that can be generated in the background.
type ReportType string

const (
	ReportTypeFinance  ReportType = "financeiro"
	ReportTypeAudit    ReportType = "auditoria"
	ReportTypeStudents ReportType = "alunos"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeFinance, ReportTypeAudit, ReportTypeStudents:
		return true
	}
	return false
}

// Permission returns the permission required to request the report.
func (t ReportType) Permission() Permission {
	switch t {
	case ReportTypeFinance:
		return PermViewFinance
	case ReportTypeAudit:
		return PermViewAudit
	default:
		return PermManageStudents
	}
}

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob persisted background job metadata.
type ReportJob struct {
	ID         string          `db:"id" json:"id"`
	Type       ReportType      `db:"type" json:"type"`
	Format     ReportFormat    `db:"format" json:"format"`
	Status     ReportStatus    `db:"status" json:"status"`
	Params     ReportJobParams `db:"params" json:"params"`
	ResultPath *string         `db:"result_path" json:"-"`
	Error      *string         `db:"error" json:"error,omitempty"`
	CreatedBy  *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	FinishedAt *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}

// ReportJobParams stores the filters a report was requested with, persisted as JSONB.
type ReportJobParams struct {
	From      *time.Time    `json:"from,omitempty"`
	To        *time.Time    `json:"to,omitempty"`
	PairID    string        `json:"pair_id,omitempty"`
	Status    StudentStatus `json:"status,omitempty"`
	TableName string        `json:"table_name,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportJobParams", value)
	}
	if len(data) == 0 {
		*p = ReportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report job params: %w", err)
	}
	return nil
}
