package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/diploma-portal/internal/authority"
	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/config"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

type issuanceAuthority interface {
	Issue(ctx context.Context, token string, payload authority.IssuePayload) (string, error)
	IssueBulk(ctx context.Context, token, filename string, content []byte) (*authority.BulkResult, error)
}

// bulkReportPublisher stores a rendered bulk report and returns where to fetch it.
type bulkReportPublisher interface {
	PublishBulkReport(ctx context.Context, report *models.BulkReport) error
}

// IssuanceService submits new diplomas to the authority.
type IssuanceService struct {
	authority issuanceAuthority
	reports   bulkReportPublisher
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	strategy  string
}

// IssuanceOptions wires the optional collaborators of IssuanceService.
type IssuanceOptions struct {
	Strategy string
	Reports  bulkReportPublisher
	Audit    auditRecorder
	Metrics  *MetricsService
}

// NewIssuanceService constructs an IssuanceService.
func NewIssuanceService(client issuanceAuthority, validate *validator.Validate, logger *zap.Logger, opts IssuanceOptions) *IssuanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if opts.Strategy == "" {
		opts.Strategy = config.BulkStrategyPerRow
	}
	return &IssuanceService{
		authority: client,
		reports:   opts.Reports,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		validator: validate,
		logger:    logger,
		strategy:  opts.Strategy,
	}
}

// IssueOne validates and submits a single diploma, returning the assigned id.
func (s *IssuanceService) IssueOne(ctx context.Context, actor models.ActorContext, req models.IssueRequest) (string, error) {
	if !actor.Authenticated() {
		return "", appErrors.ErrUnauthorized
	}
	req = normaliseIssueRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, describeValidation(err))
	}

	id, err := s.authority.Issue(ctx, actor.AuthorityToken, toPayload(req))
	if err != nil {
		return "", mapAuthorityError(err)
	}

	s.record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionIssue, Resource: models.AuditResourceDiploma, ResourceID: id})
	s.logger.Info("diploma issued", zap.String("diploma_id", id))
	return id, nil
}

// IssueBulk issues every row of a CSV file. Row failures never abort the batch.
func (s *IssuanceService) IssueBulk(ctx context.Context, actor models.ActorContext, filename string, content []byte) (*models.BulkReport, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	rows, err := parseBulkCSV(content)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedInput, "invalid CSV file: "+err.Error())
	}

	var report *models.BulkReport
	if s.strategy == config.BulkStrategyRemote {
		report, err = s.issueBulkRemote(ctx, actor, filename, content, len(rows))
		if err != nil {
			return nil, err
		}
	} else {
		report = s.issueBulkPerRow(ctx, actor, rows)
	}

	s.metrics.RecordBulkReport(report)
	if s.reports != nil {
		if err := s.reports.PublishBulkReport(ctx, report); err != nil {
			s.logger.Warn("bulk report not stored", zap.Error(err))
		}
	}
	s.record(ctx, AuditEntry{
		Actor:    actor,
		Action:   models.AuditActionIssueBulk,
		Resource: models.AuditResourceBulkFile,
		Details:  map[string]interface{}{"filename": filename, "total": report.Total, "success": report.Success, "failed": report.Failed},
	})
	s.logger.Info("bulk issuance finished",
		zap.Int("total", report.Total), zap.Int("success", report.Success), zap.Int("failed", report.Failed))
	return report, nil
}

func (s *IssuanceService) issueBulkPerRow(ctx context.Context, actor models.ActorContext, rows []bulkRow) *models.BulkReport {
	report := &models.BulkReport{Details: make([]models.BulkOutcome, 0, len(rows))}
	for _, row := range rows {
		outcome := models.BulkOutcome{Row: row.Row}
		if err := ctx.Err(); err != nil {
			outcome.Status = models.BulkRowFailed
			outcome.Error = "request cancelled"
			report.Details = append(report.Details, outcome)
			continue
		}
		if row.ParseError != "" {
			outcome.Status = models.BulkRowFailed
			outcome.Error = row.ParseError
			report.Details = append(report.Details, outcome)
			continue
		}
		req := normaliseIssueRequest(row.Request)
		if err := s.validator.Struct(req); err != nil {
			outcome.Status = models.BulkRowFailed
			outcome.Error = describeValidation(err)
			report.Details = append(report.Details, outcome)
			continue
		}
		id, err := s.authority.Issue(ctx, actor.AuthorityToken, toPayload(req))
		if err != nil {
			outcome.Status = models.BulkRowFailed
			outcome.Error = mapAuthorityError(err).Message
		} else {
			outcome.Status = models.BulkRowSuccess
			outcome.DiplomaID = id
		}
		report.Details = append(report.Details, outcome)
	}
	report.Recount()
	return report
}

func (s *IssuanceService) issueBulkRemote(ctx context.Context, actor models.ActorContext, filename string, content []byte, rowCount int) (*models.BulkReport, error) {
	result, err := s.authority.IssueBulk(ctx, actor.AuthorityToken, filename, content)
	if err != nil {
		if errors.Is(err, authority.ErrRejected) {
			return nil, appErrors.WrapAs(err, appErrors.ErrMalformedInput, "the diploma authority rejected the file: "+authority.MessageOf(err))
		}
		return nil, mapAuthorityError(err)
	}
	if result == nil {
		result = &authority.BulkResult{}
	}

	details := make([]models.BulkOutcome, 0, len(result.Details))
	for i, d := range result.Details {
		row := d.Row
		if row <= 0 {
			row = i + 1
		}
		status := models.BulkRowFailed
		if strings.EqualFold(d.Status, "success") || strings.EqualFold(d.Status, "ok") {
			status = models.BulkRowSuccess
		}
		details = append(details, models.BulkOutcome{Row: row, Status: status, DiplomaID: d.DiplomaID, Error: d.Error})
	}
	sort.SliceStable(details, func(i, j int) bool { return details[i].Row < details[j].Row })

	report := &models.BulkReport{Details: details}
	report.Recount()
	if result.Total != nil {
		report.Total = *result.Total
	} else if report.Total < rowCount {
		report.Total = rowCount
	}
	if result.Success != nil {
		report.Success = *result.Success
	}
	if result.Failed != nil {
		report.Failed = *result.Failed
	} else {
		report.Failed = report.Total - report.Success
	}
	return report, nil
}

func (s *IssuanceService) record(ctx context.Context, entry AuditEntry) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

func normaliseIssueRequest(req models.IssueRequest) models.IssueRequest {
	return models.IssueRequest{
		StudentName:  strings.TrimSpace(req.StudentName),
		StudentEmail: strings.TrimSpace(req.StudentEmail),
		DegreeName:   strings.TrimSpace(req.DegreeName),
	}
}

func toPayload(req models.IssueRequest) authority.IssuePayload {
	return authority.IssuePayload{StudentName: req.StudentName, StudentEmail: req.StudentEmail, DegreeName: req.DegreeName}
}

// describeValidation renders validator errors as a short human message.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid diploma request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonFieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email address", field))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(parts, "; ")
}

func jsonFieldName(field string) string {
	switch field {
	case "StudentName":
		return "student_name"
	case "StudentEmail":
		return "student_email"
	case "DegreeName":
		return "degree_name"
	default:
		return strings.ToLower(field)
	}
}
