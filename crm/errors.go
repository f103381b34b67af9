package crm

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

func crmError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(crmTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func crmWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return crmError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(crmTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func crmTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return "CRM_BAD_REQUEST"
	case goerrors.CategoryAuth:
		return "CRM_UNAUTHORIZED"
	case goerrors.CategoryNotFound:
		return "CRM_NOT_FOUND"
	case goerrors.CategoryRateLimit:
		return "CRM_RATE_LIMITED"
	case goerrors.CategoryExternal:
		return "CRM_UPSTREAM_ERROR"
	default:
		return "CRM_INTERNAL_ERROR"
	}
}

// categoryForStatus maps a remote status code onto the error category
// the rest of the system keys behavior off. Notably 404 must map to
// CategoryNotFound so the executor's create fallback can recognize it.
func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status >= http.StatusInternalServerError:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryBadInput
	}
}
