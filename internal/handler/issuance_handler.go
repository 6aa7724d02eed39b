package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/internal/service"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

type issuanceService interface {
	IssueOne(ctx context.Context, actor models.ActorContext, req models.IssueRequest) (string, error)
	IssueBulk(ctx context.Context, actor models.ActorContext, filename string, content []byte) (*models.BulkReport, error)
}

type reportOpener interface {
	OpenBulkReport(token string) (*service.ExportFile, error)
}

// IssuanceHandler exposes single and bulk issuance.
type IssuanceHandler struct {
	service     issuanceService
	reports     reportOpener
	maxFileSize int64
}

// NewIssuanceHandler constructs the handler. maxFileSize bounds bulk uploads.
func NewIssuanceHandler(service issuanceService, reports reportOpener, maxFileSize int64) *IssuanceHandler {
	return &IssuanceHandler{service: service, reports: reports, maxFileSize: maxFileSize}
}

// Issue godoc
// @Summary Issue one diploma
// @Tags Issuance
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.IssueRequest true "Diploma fields"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /diplomas [post]
func (h *IssuanceHandler) Issue(c *gin.Context) {
	var req models.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid diploma payload"))
		return
	}
	id, err := h.service.IssueOne(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, models.IssueResponse{DiplomaID: id})
}

// IssueBulk godoc
// @Summary Issue diplomas from a CSV file
// @Description Columns student_name, student_email, degree_name in any order. Each row is reported separately.
// @Tags Issuance
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /diplomas/bulk [post]
func (h *IssuanceHandler) IssueBulk(c *gin.Context) {
	content, filename, err := readUpload(c, "file", h.maxFileSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.IssueBulk(c.Request.Context(), actorFromContext(c), filename, content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// BulkReport godoc
// @Summary Download a bulk issuance report
// @Tags Issuance
// @Produce text/csv
// @Param token path string true "Signed report token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /diplomas/bulk/reports/{token} [get]
func (h *IssuanceHandler) BulkReport(c *gin.Context) {
	file, err := h.reports.OpenBulkReport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
