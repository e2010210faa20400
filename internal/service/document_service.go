package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/storage"
)

var defaultDocumentMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}

type documentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	SetDocument(ctx context.Context, id string, path *string) error
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type tokenSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (*storage.Grant, error)
}

// DocumentServiceConfig limits uploaded student documents.
type DocumentServiceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DocumentLink is a signed, expiring link to a stored document.
type DocumentLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService stores one identity document per student.
type DocumentService struct {
	students documentStudentRepository
	store    fileStore
	signer   tokenSigner
	audit    auditRecorder
	cfg      DocumentServiceConfig
	logger   *zap.Logger
}

// NewDocumentService constructs the document service.
func NewDocumentService(students documentStudentRepository, store fileStore, signer tokenSigner, audit auditRecorder, cfg DocumentServiceConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = defaultDocumentMIMEs
	}
	return &DocumentService{students: students, store: store, signer: signer, audit: audit, cfg: cfg, logger: logger}
}

// Upload validates size and detected content type, stores the file and replaces the
// student's previous document.
func (s *DocumentService) Upload(ctx context.Context, actor models.Actor, studentID string, r io.Reader) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(r, s.cfg.MaxFileSizeBytes+1)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if buf.Len() == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if int64(buf.Len()) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.ErrPayloadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !s.allowed(detected) {
		s.logger.Info("document rejected", zap.String("student_id", studentID), zap.String("mime", detected.String()))
		return nil, appErrors.ErrUnsupportedMedia
	}

	rel := path.Join("students", studentID, uuid.NewString()+detected.Extension())
	if _, err := s.store.Save(rel, buf.Bytes()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	if err := s.students.SetDocument(ctx, studentID, &rel); err != nil {
		_ = s.store.Delete(rel)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document reference")
	}
	if student.DocumentPath != nil && *student.DocumentPath != rel {
		if err := s.store.Delete(*student.DocumentPath); err != nil {
			s.logger.Warn("failed to delete previous document", zap.String("path", *student.DocumentPath), zap.Error(err))
		}
	}
	if s.audit != nil {
		s.audit.Record(ctx, actor, models.AuditActionUpdate, models.TableStudents, studentID,
			map[string]interface{}{"document_path": student.DocumentPath},
			map[string]interface{}{"document_path": rel},
		)
	}
	student.DocumentPath = &rel
	return student, nil
}

// Link returns a signed download token for the student's document.
func (s *DocumentService) Link(ctx context.Context, studentID string) (*DocumentLink, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	if student.DocumentPath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no document")
	}
	token, expiresAt, err := s.signer.Generate(student.ID, *student.DocumentPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign document link")
	}
	return &DocumentLink{Token: token, ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token to the stored file. The caller closes it.
func (s *DocumentService) Open(token string) (*os.File, string, error) {
	grant, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrExpiredToken) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	if !strings.HasPrefix(grant.Path, path.Join("students", grant.Subject)+"/") {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.store.Open(grant.Path)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return file, fmt.Sprintf("documento-%s%s", grant.Subject, path.Ext(grant.Path)), nil
}

func (s *DocumentService) allowed(detected *mimetype.MIME) bool {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}
