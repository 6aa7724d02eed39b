package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/export"
	"github.com/noah-isme/diploma-portal/pkg/storage"
)

const bulkReportSubject = "bulk"

// Export formats accepted by ExportList.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type diplomaLister interface {
	List(ctx context.Context, actor models.ActorContext) ([]models.Diploma, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	PublicBaseURL   string
	APIPrefix       string
	ReportTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders diploma lists and keeps bulk issuance reports behind signed links.
type ExportService struct {
	diplomas diplomaLister
	storage  fileStorage
	csv      renderer
	pdf      renderer
	signer   *storage.SignedURLSigner
	audit    auditRecorder
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(diplomas diplomaLister, store fileStorage, signer *storage.SignedURLSigner, audit auditRecorder, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = 24 * time.Hour
	}
	return &ExportService{
		diplomas: diplomas,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		signer:   signer,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ExportList renders every record visible to actor as CSV or PDF.
func (s *ExportService) ExportList(ctx context.Context, actor models.ActorContext, format string) (*ExportFile, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	var r renderer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ExportFormatCSV:
		r = s.csv
	case ExportFormatPDF:
		r = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	list, err := s.diplomas.List(ctx, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   "Issued diplomas",
		Headers: []string{"id", "student_name", "student_email", "degree_name", "issued_at", "revoked"},
	}
	for _, d := range list {
		dataset.Append(d.ID, d.StudentName, d.StudentEmail, d.DegreeName, d.IssuedAt.Date(), strconv.FormatBool(d.Revoked))
	}
	body, err := r.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionExport, Resource: models.AuditResourceDiploma,
			Details: map[string]interface{}{"format": r.Extension(), "rows": len(list)}})
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("diplomas-%s.%s", s.now().UTC().Format("20060102-150405"), r.Extension()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}

// PublishBulkReport stores the report as CSV and attaches a signed download URL.
func (s *ExportService) PublishBulkReport(_ context.Context, report *models.BulkReport) error {
	if report == nil {
		return nil
	}
	dataset := export.Dataset{Headers: []string{"row", "status", "diploma_id", "error"}}
	for _, d := range report.Details {
		dataset.Append(strconv.Itoa(d.Row), string(d.Status), d.DiplomaID, d.Error)
	}
	body, err := s.csv.Render(dataset)
	if err != nil {
		return fmt.Errorf("render bulk report: %w", err)
	}

	relPath, err := s.storage.Save(fmt.Sprintf("bulk/%s.csv", uuid.NewString()), body)
	if err != nil {
		return fmt.Errorf("store bulk report: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(bulkReportSubject, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return fmt.Errorf("sign bulk report: %w", err)
	}
	report.ReportURL = s.publicURL("/diplomas/bulk/reports/" + token)
	report.ExpiresAt = &expiresAt
	return nil
}

// OpenBulkReport returns the stored report behind a signed token.
func (s *ExportService) OpenBulkReport(token string) (*ExportFile, error) {
	subject, relPath, _, err := s.signer.Parse(token, false)
	if err != nil || subject != bulkReportSubject {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	body, err := s.storage.Read(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report")
	}
	return &ExportFile{Filename: "bulk-report.csv", ContentType: s.csv.ContentType(), Body: body}, nil
}

// StartCleanup periodically removes reports older than their TTL until ctx ends.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *ExportService) cleanupExpired() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ReportTTL)
	if err != nil {
		s.logger.Warn("bulk report cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("bulk reports purged", zap.Int("count", len(deleted)))
	}
}

func (s *ExportService) publicURL(path string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + s.cfg.APIPrefix + path
}
