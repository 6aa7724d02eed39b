package service

import (
	"errors"

	"github.com/noah-isme/diploma-portal/internal/authority"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
)

// mapAuthorityError converts an authority failure into the portal error taxonomy.
func mapAuthorityError(err error) *appErrors.Error {
	if err == nil {
		return nil
	}
	message := authority.MessageOf(err)
	switch {
	case errors.Is(err, authority.ErrUnavailable):
		return appErrors.WrapAs(err, appErrors.ErrServiceUnavailable, "")
	case errors.Is(err, authority.ErrUnauthorized):
		return appErrors.WrapAs(err, appErrors.ErrUnauthorized, "session with the diploma authority is no longer valid")
	case errors.Is(err, authority.ErrForbidden):
		return appErrors.WrapAs(err, appErrors.ErrForbidden, "the diploma authority denied this operation")
	case errors.Is(err, authority.ErrNotFound):
		return appErrors.WrapAs(err, appErrors.ErrNotFound, "")
	case errors.Is(err, authority.ErrRejected):
		if message == "" {
			message = "the diploma authority rejected the request"
		}
		return appErrors.WrapAs(err, appErrors.ErrValidation, message)
	default:
		return appErrors.FromError(err)
	}
}
