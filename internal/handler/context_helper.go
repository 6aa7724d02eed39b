package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/middleware"
	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

// multipartOverhead leaves room for form boundaries around the uploaded file.
const multipartOverhead = 64 << 10

func actorFromContext(c *gin.Context) models.ActorContext {
	return middleware.ActorFromContext(c)
}

// readUpload reads the multipart file field, rejecting bodies larger than maxSize.
func readUpload(c *gin.Context, field string, maxSize int64) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", tooLargeError(maxSize)
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a file must be uploaded in the '"+field+"' field")
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, "", tooLargeError(maxSize)
	}
	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, http.StatusBadRequest, "failed to read uploaded file")
	}
	if int64(len(content)) > maxSize {
		return nil, "", tooLargeError(maxSize)
	}
	return content, header.Filename, nil
}

// readBody reads a raw request body bounded by maxSize.
func readBody(c *gin.Context, maxSize int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, http.StatusBadRequest, "failed to read request body")
	}
	if int64(len(content)) > maxSize {
		return nil, tooLargeError(maxSize)
	}
	return content, nil
}

func tooLargeError(maxSize int64) error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, "uploaded file exceeds the "+humanSize(maxSize)+" limit")
}

func humanSize(n int64) string {
	const unit = 1 << 20
	if n >= unit && n%unit == 0 {
		return strconv.FormatInt(n/unit, 10) + "MB"
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return strconv.FormatInt(n/(1<<10), 10) + "KB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
