package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

type verificationService interface {
	Verify(ctx context.Context, raw []byte) models.VerificationResult
}

// VerificationHandler checks uploaded verification files.
type VerificationHandler struct {
	service     verificationService
	maxFileSize int64
}

// NewVerificationHandler constructs the handler.
func NewVerificationHandler(service verificationService, maxFileSize int64) *VerificationHandler {
	return &VerificationHandler{service: service, maxFileSize: maxFileSize}
}

// Verify godoc
// @Summary Verify a diploma verification file
// @Description Accepts the file as multipart field "file" or as the raw JSON body. INVALID verdicts are returned with 200; 503 means no verdict could be obtained.
// @Tags Verification
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "Verification file"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /verify [post]
func (h *VerificationHandler) Verify(c *gin.Context) {
	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		raw, _, err = readUpload(c, "file", h.maxFileSize)
	} else {
		raw, err = readBody(c, h.maxFileSize)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	result := h.service.Verify(c.Request.Context(), raw)
	status := http.StatusOK
	if result.Outcome == models.OutcomeServiceUnavailable {
		status = http.StatusServiceUnavailable
	}
	response.JSON(c, status, result, nil)
}
