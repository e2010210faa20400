package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/export"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/storage"
)

type auditLogSource interface {
	AllLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Fee       float64
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and student documents and persists rendered files.
type ExportService struct {
	pairs    pairReader
	students studentFinder
	audit    auditLogSource
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(pairs pairReader, students studentFinder, audit auditLogSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("Preparatório AAUMA")
	}
	return &ExportService{
		pairs:    pairs,
		students: students,
		audit:    audit,
		storage:  files,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Render builds and renders a report synchronously.
func (s *ExportService) Render(ctx context.Context, reportType models.ReportType, format models.ReportFormat, params models.ReportJobParams) ([]byte, error) {
	dataset, title, err := s.buildDataset(ctx, reportType, params)
	if err != nil {
		return nil, err
	}
	switch format {
	case models.ReportFormatCSV:
		return s.csv.Render(dataset)
	case models.ReportFormatPDF:
		return s.pdf.Render(dataset, title)
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
}

// Generate renders the job's report, stores it and signs a download link.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	payload, err := s.Render(ctx, job.Type, job.Format, job.Params)
	if err != nil {
		return nil, err
	}
	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	return s.Sign(job.ID, relPath, job.Format)
}

// Sign issues a fresh download link for an already stored file.
func (s *ExportService) Sign(jobID, relPath string, format models.ReportFormat) (*ExportResult, error) {
	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download?token=%s", prefix, url.QueryEscape(token)),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (*storage.Grant, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// EnrollmentForm renders the printable enrollment form of one student.
func (s *ExportService) EnrollmentForm(ctx context.Context, studentID string) ([]byte, error) {
	student, pair, variant, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	doc := export.Document{
		Title:    "Ficha de Inscrição",
		Subtitle: "Nº " + student.StudentNumber,
		Sections: []export.Section{
			{Heading: "Dados pessoais", Fields: []export.Field{
				{Label: "Nome", Value: student.Name},
				{Label: "Bilhete de identidade", Value: student.NationalID},
				{Label: "Data de nascimento", Value: formatDate(student.BirthDate)},
				{Label: "Telefone", Value: student.Phone},
				{Label: "Email", Value: deref(student.Email)},
				{Label: "Morada", Value: deref(student.Address)},
			}},
			{Heading: "Curso", Fields: []export.Field{
				{Label: "Curso", Value: student.CourseCode},
				{Label: "Par de turmas", Value: pair},
				{Label: "Turma", Value: variant},
				{Label: "Período", Value: student.ShiftLabel},
				{Label: "Duração", Value: student.DurationLabel},
				{Label: "Início", Value: student.StartDate.Format("02/01/2006")},
			}},
			{Heading: "Pagamento", Fields: []export.Field{
				{Label: "Valor", Value: FormatKwanza(student.AmountPaid)},
				{Label: "Método", Value: paymentLabel(student.PaymentMethod)},
				{Label: "Estado", Value: string(student.Status)},
			}},
		},
		Footer: "Inscrito em " + student.CreatedAt.Format("02/01/2006 15:04"),
	}
	return s.pdf.RenderDocument(doc)
}

// Invoice renders the payment receipt of one student.
func (s *ExportService) Invoice(ctx context.Context, studentID string) ([]byte, error) {
	student, pair, variant, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.Status == models.StudentStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cancelled enrollments have no invoice")
	}
	fee := s.cfg.Fee
	if fee <= 0 {
		fee = student.AmountPaid
	}
	doc := export.Document{
		Title:    "Factura / Recibo",
		Subtitle: fmt.Sprintf("FT %s · %s", student.StudentNumber, s.now().Format("02/01/2006")),
		Sections: []export.Section{
			{Heading: "Cliente", Fields: []export.Field{
				{Label: "Nome", Value: student.Name},
				{Label: "Bilhete de identidade", Value: student.NationalID},
				{Label: "Telefone", Value: student.Phone},
			}},
			{Heading: "Descrição", Fields: []export.Field{
				{Label: "Serviço", Value: fmt.Sprintf("Preparatório %s, %s", student.CourseCode, student.DurationLabel)},
				{Label: "Turma", Value: strings.TrimSpace(pair + " " + variant)},
				{Label: "Valor da propina", Value: FormatKwanza(fee)},
				{Label: "Valor pago", Value: FormatKwanza(student.AmountPaid)},
				{Label: "Em dívida", Value: FormatKwanza(maxFloat(0, fee-student.AmountPaid))},
				{Label: "Método", Value: paymentLabel(student.PaymentMethod)},
			}},
		},
		Footer: "Documento processado por computador.",
	}
	return s.pdf.RenderDocument(doc)
}

func (s *ExportService) loadStudent(ctx context.Context, id string) (*models.Student, string, string, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, "", "", notFoundOr(err, "student not found", "failed to load student")
	}
	pair, err := s.pairs.GetPair(ctx, student.PairID)
	if err != nil {
		s.logger.Warn("student pair unavailable for document", zap.String("student_id", id), zap.Error(err))
		return student, "", "", nil
	}
	variant := ""
	for _, class := range pair.Classes() {
		if class.ID == student.ClassID {
			variant = "Turma " + string(class.Variant)
		}
	}
	return student, pair.Name, variant, nil
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.PairID)
	return fmt.Sprintf("reports/%s_%s_%s_%s.%s", job.Type, scope, timestamp, shortID(job.ID), job.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (export.Dataset, string, error) {
	switch reportType {
	case models.ReportTypeFinance:
		return s.buildFinanceDataset(ctx, params)
	case models.ReportTypeStudents:
		return s.buildStudentDataset(ctx, params)
	case models.ReportTypeAudit:
		return s.buildAuditDataset(ctx, params)
	}
	return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %s", reportType))
}

type studentRow struct {
	student models.Student
	pair    string
	variant models.ClassVariant
}

func (s *ExportService) collectStudents(ctx context.Context, params models.ReportJobParams) ([]dto.PairView, []studentRow, error) {
	views, err := s.pairs.LoadAllPairs(ctx)
	if err != nil {
		return nil, nil, err
	}
	var rows []studentRow
	var scoped []dto.PairView
	for _, view := range views {
		if params.PairID != "" && view.ID != params.PairID {
			continue
		}
		scoped = append(scoped, view)
		for _, class := range view.Classes() {
			for _, st := range class.Students {
				if params.Status != "" && st.Status != params.Status {
					continue
				}
				if params.From != nil && st.CreatedAt.Before(*params.From) {
					continue
				}
				if params.To != nil && st.CreatedAt.After(*params.To) {
					continue
				}
				rows = append(rows, studentRow{student: st, pair: view.Name, variant: class.Variant})
			}
		}
	}
	return scoped, rows, nil
}

func (s *ExportService) buildFinanceDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	views, rows, err := s.collectStudents(ctx, params)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Número", "Nome", "Curso", "Par", "Turma", "Método", "Estado", "Valor"}
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]string{
			"Número": row.student.StudentNumber,
			"Nome":   row.student.Name,
			"Curso":  row.student.CourseCode,
			"Par":    row.pair,
			"Turma":  string(row.variant),
			"Método": paymentLabel(row.student.PaymentMethod),
			"Estado": string(row.student.Status),
			"Valor":  strconv.FormatFloat(row.student.AmountPaid, 'f', 2, 64),
		})
	}
	summary := BuildFinanceSummary(views, s.cfg.Fee)
	dataset := export.Dataset{
		Headers: headers,
		Rows:    data,
		Summary: []string{
			"Total arrecadado: " + FormatKwanza(summary.CollectedAmount),
			"Total previsto: " + FormatKwanza(summary.ExpectedAmount),
			"Em dívida: " + FormatKwanza(summary.Outstanding),
			fmt.Sprintf("Alunos pagantes: %d, cancelados: %d", summary.PayingStudents, summary.Cancelled),
		},
	}
	return dataset, "Relatório Financeiro", nil
}

func (s *ExportService) buildStudentDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	_, rows, err := s.collectStudents(ctx, params)
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Número", "Nome", "Telefone", "BI", "Curso", "Par", "Turma", "Estado", "Inscrito em"}
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]string{
			"Número":      row.student.StudentNumber,
			"Nome":        row.student.Name,
			"Telefone":    row.student.Phone,
			"BI":          row.student.NationalID,
			"Curso":       row.student.CourseCode,
			"Par":         row.pair,
			"Turma":       string(row.variant),
			"Estado":      string(row.student.Status),
			"Inscrito em": row.student.CreatedAt.Format("02/01/2006"),
		})
	}
	dataset := export.Dataset{
		Headers: headers,
		Rows:    data,
		Summary: []string{fmt.Sprintf("Total de alunos: %d", len(rows))},
	}
	return dataset, "Lista de Alunos", nil
}

func (s *ExportService) buildAuditDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	logs, err := s.audit.AllLogs(ctx, models.AuditFilter{TableName: params.TableName, From: params.From, To: params.To})
	if err != nil {
		return export.Dataset{}, "", err
	}
	headers := []string{"Data", "Utilizador", "Acção", "Tabela", "Registo", "IP"}
	data := make([]map[string]string, 0, len(logs))
	for _, log := range logs {
		data = append(data, map[string]string{
			"Data":       log.CreatedAt.UTC().Format(time.RFC3339),
			"Utilizador": deref(log.UserID),
			"Acção":      log.Action,
			"Tabela":     log.TableName,
			"Registo":    deref(log.RecordID),
			"IP":         log.IPAddress,
		})
	}
	dataset := export.Dataset{
		Headers: headers,
		Rows:    data,
		Summary: []string{fmt.Sprintf("Registos: %d", len(logs))},
	}
	return dataset, "Relatório de Auditoria", nil
}

// FormatKwanza formats an amount as "15 000,00 Kz".
func FormatKwanza(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	raw := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, frac := raw[:len(raw)-3], raw[len(raw)-2:]
	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(digit)
	}
	out := grouped.String() + "," + frac + " Kz"
	if negative {
		return "-" + out
	}
	return out
}

func paymentLabel(method models.PaymentMethod) string {
	switch method {
	case models.PaymentCash:
		return "Dinheiro"
	case models.PaymentTransfer:
		return "Transferência"
	case models.PaymentCard:
		return "Cartão"
	}
	return string(method)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "todos"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
