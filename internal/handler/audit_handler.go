package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

const defaultHistoryLimit = 50

type auditHistory interface {
	History(ctx context.Context, diplomaID string, limit int) ([]models.AuditLog, error)
}

// AuditHandler exposes the audit trail of a diploma.
type AuditHandler struct {
	service auditHistory
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditHistory) *AuditHandler {
	return &AuditHandler{service: service}
}

// History godoc
// @Summary Audit trail of a diploma
// @Tags Diplomas
// @Security BearerAuth
// @Produce json
// @Param id path string true "Diploma ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /diplomas/{id}/audit [get]
func (h *AuditHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	logs, err := h.service.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, map[string]interface{}{"total": len(logs)})
}
