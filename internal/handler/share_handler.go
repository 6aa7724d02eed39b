package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

type shareService interface {
	CreateLink(ctx context.Context, actor models.ActorContext, id string) (*models.ShareLink, error)
	QRCode(ctx context.Context, actor models.ActorContext, id string, size int) ([]byte, string, error)
	Resolve(ctx context.Context, token string) (*models.SharedDiploma, error)
}

// ShareHandler issues and opens share links.
type ShareHandler struct {
	service shareService
}

// NewShareHandler constructs the handler.
func NewShareHandler(service shareService) *ShareHandler {
	return &ShareHandler{service: service}
}

// Share godoc
// @Summary Create a share link for a diploma
// @Tags Sharing
// @Security BearerAuth
// @Produce json
// @Param id path string true "Diploma ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /diplomas/{id}/share [post]
func (h *ShareHandler) Share(c *gin.Context) {
	link, err := h.service.CreateLink(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// QRCode godoc
// @Summary QR code of the share link
// @Tags Sharing
// @Security BearerAuth
// @Produce image/png
// @Param id path string true "Diploma ID"
// @Param size query int false "Image size in pixels" default(256)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /diplomas/{id}/qrcode [get]
func (h *ShareHandler) QRCode(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "size must be an integer"))
			return
		}
		size = parsed
	}
	png, contentType, err := h.service.QRCode(c.Request.Context(), actorFromContext(c), c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, png)
}

// Shared godoc
// @Summary Open a share link
// @Description Returns the current verification file of the diploma with a live verdict.
// @Tags Sharing
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shared/{token} [get]
func (h *ShareHandler) Shared(c *gin.Context) {
	shared, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shared, nil)
}
