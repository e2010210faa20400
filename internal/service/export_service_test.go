package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/dto"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/storage"
)

type viewStub struct {
	views []dto.PairView
}

func (v viewStub) LoadAllPairs(ctx context.Context) ([]dto.PairView, error) {
	return v.views, nil
}

func (v viewStub) GetPair(ctx context.Context, id string) (*dto.PairView, error) {
	for i := range v.views {
		if v.views[i].ID == id {
			return &v.views[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course pair not found")
}

func (v viewStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, view := range v.views {
		for _, class := range view.Classes() {
			for _, st := range class.Students {
				if st.ID == id {
					st.PairID = view.ID
					st.ClassID = class.ID
					return &st, nil
				}
			}
		}
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs   []models.AuditLog
	filter models.AuditFilter
}

func (a *auditStub) AllLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	a.filter = filter
	return a.logs, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *auditStub) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	stub := viewStub{views: sampleViews()}
	audit := &auditStub{}
	svc := NewExportService(stub, stub, audit, files, signer, ExportConfig{APIPrefix: "/api/v1", Fee: 15000}, zap.NewNop(), nil, nil)
	return svc, files, audit
}

func TestExportFinanceCSV(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	payload, err := svc.Render(context.Background(), models.ReportTypeFinance, models.ReportFormatCSV, models.ReportJobParams{})
	require.NoError(t, err)
	content := string(bytes.TrimPrefix(payload, []byte("\ufeff")))
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Número;Nome;Curso;Par;Turma;Método;Estado;Valor", lines[0])
	assert.Contains(t, content, "Aluno s3;ENG-CIV;Engenharias;B;Transferência;confirmado;10000.00")
}

func TestExportStudentsFiltersByStatus(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	payload, err := svc.Render(context.Background(), models.ReportTypeStudents, models.ReportFormatCSV, models.ReportJobParams{Status: models.StudentStatusCancelled})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Aluno s2")
}

func TestExportAuditPassesFilter(t *testing.T) {
	svc, _, audit := newExportServiceForTest(t)
	audit.logs = []models.AuditLog{{Action: "INSERT", TableName: "students", IPAddress: "10.0.0.1", CreatedAt: time.Now()}}

	payload, err := svc.Render(context.Background(), models.ReportTypeAudit, models.ReportFormatPDF, models.ReportJobParams{TableName: "students"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
	assert.Equal(t, "students", audit.filter.TableName)
}

func TestExportGenerateStoresAndSigns(t *testing.T) {
	svc, files, _ := newExportServiceForTest(t)
	job := &models.ReportJob{ID: "job-12345678-abcd", Type: models.ReportTypeFinance, Format: models.ReportFormatPDF}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RelativePath, "reports/financeiro_todos_"))
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/reports/download?token="))

	grant, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-12345678-abcd", grant.Subject)

	file, err := files.Open(result.RelativePath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportRejectsUnknownType(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.Render(context.Background(), "notas", models.ReportFormatCSV, models.ReportJobParams{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEnrollmentFormAndInvoice(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	form, err := svc.EnrollmentForm(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(form, []byte("%PDF")))

	invoice, err := svc.Invoice(context.Background(), "s3")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(invoice, []byte("%PDF")))

	_, err = svc.Invoice(context.Background(), "s2")
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	_, err = svc.EnrollmentForm(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestFormatKwanza(t *testing.T) {
	assert.Equal(t, "15 000,00 Kz", FormatKwanza(15000))
	assert.Equal(t, "999,50 Kz", FormatKwanza(999.5))
	assert.Equal(t, "1 234 567,00 Kz", FormatKwanza(1234567))
	assert.Equal(t, "-5 000,00 Kz", FormatKwanza(-5000))
}
