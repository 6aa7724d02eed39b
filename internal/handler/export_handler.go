package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/internal/service"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

type exportService interface {
	ExportList(ctx context.Context, actor models.ActorContext, format string) (*service.ExportFile, error)
}

// ExportHandler renders the diploma list as a downloadable document.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export the diploma list
// @Tags Diplomas
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /diplomas/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	file, err := h.service.ExportList(c.Request.Context(), actorFromContext(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
