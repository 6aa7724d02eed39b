package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/middleware"
	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

type diplomaService interface {
	List(ctx context.Context, actor models.ActorContext) ([]models.Diploma, error)
	VerificationFile(ctx context.Context, actor models.ActorContext, id string) (*models.VerificationFile, error)
	PDF(ctx context.Context, actor models.ActorContext, id string) ([]byte, error)
	Revoke(ctx context.Context, actor models.ActorContext, id string) (*models.RevocationAck, error)
}

// DiplomaHandler exposes listing, downloads and revocation.
type DiplomaHandler struct {
	service diplomaService
	now     func() time.Time
}

// NewDiplomaHandler constructs the handler.
func NewDiplomaHandler(service diplomaService) *DiplomaHandler {
	return &DiplomaHandler{service: service, now: time.Now}
}

// List godoc
// @Summary List diplomas visible to the caller
// @Description Anonymous callers receive an empty list. Holders only see their own records.
// @Tags Diplomas
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /diplomas [get]
func (h *DiplomaHandler) List(c *gin.Context) {
	actor := actorFromContext(c)
	diplomas, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "fetched_at", h.now().UTC())
	middleware.SetMeta(c, "total", len(diplomas))
	response.JSON(c, http.StatusOK, diplomas, middleware.ExtractMeta(c))
}

// VerificationFile godoc
// @Summary Download the verification file of a diploma
// @Tags Diplomas
// @Security BearerAuth
// @Produce json
// @Param id path string true "Diploma ID"
// @Success 200 {object} models.VerificationFile
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /diplomas/{id}/verification-file [get]
func (h *DiplomaHandler) VerificationFile(c *gin.Context) {
	id := c.Param("id")
	file, err := h.service.VerificationFile(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode verification file"))
		return
	}
	response.Attachment(c, "diploma-"+id+".json", "application/json", body)
}

// PDF godoc
// @Summary Download the diploma PDF rendered by the authority
// @Tags Diplomas
// @Security BearerAuth
// @Produce application/pdf
// @Param id path string true "Diploma ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /diplomas/{id}/pdf [get]
func (h *DiplomaHandler) PDF(c *gin.Context) {
	id := c.Param("id")
	body, err := h.service.PDF(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "diploma-"+id+".pdf", "application/pdf", body)
}

// Revoke godoc
// @Summary Revoke a diploma
// @Description Revocation is irreversible and requires {"confirm": true}. Revoking twice is acknowledged.
// @Tags Diplomas
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Diploma ID"
// @Param payload body models.RevokeRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /diplomas/{id}/revoke [post]
func (h *DiplomaHandler) Revoke(c *gin.Context) {
	var req models.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "revocation is irreversible and must be confirmed"))
		return
	}
	ack, err := h.service.Revoke(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ack, nil)
}
