package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SyncErrorBadInput            = "ONBOARDING_BAD_INPUT"
	SyncErrorConnectionNotFound  = "ONBOARDING_CONNECTION_NOT_FOUND"
	SyncErrorWizardNotFound      = "ONBOARDING_WIZARD_NOT_FOUND"
	SyncErrorRefreshConfig       = "ONBOARDING_REFRESH_NOT_CONFIGURED"
	SyncErrorCRMOperationFailed  = "ONBOARDING_CRM_OPERATION_FAILED"
	SyncErrorRunPersistence      = "ONBOARDING_RUN_PERSISTENCE_FAILED"
	SyncErrorRateLimited         = "ONBOARDING_RATE_LIMITED"
	SyncErrorInternal            = "ONBOARDING_INTERNAL_ERROR"
)

func syncErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSyncErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "connection") && strings.Contains(msg, "not found"):
		return newSyncError(err.Error(), goerrors.CategoryNotFound, SyncErrorConnectionNotFound)
	case strings.Contains(msg, "wizard") && strings.Contains(msg, "not found"):
		return newSyncError(err.Error(), goerrors.CategoryNotFound, SyncErrorWizardNotFound)
	case strings.Contains(msg, "refresh") && strings.Contains(msg, "configured"):
		return newSyncError(err.Error(), goerrors.CategoryValidation, SyncErrorRefreshConfig)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newSyncError(err.Error(), goerrors.CategoryRateLimit, SyncErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newSyncError(err.Error(), goerrors.CategoryBadInput, SyncErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSyncErrorEnvelope(mapped)
}

func newSyncError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSyncErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSyncErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = syncHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSyncTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSyncTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SyncErrorBadInput
	case goerrors.CategoryNotFound:
		return SyncErrorConnectionNotFound
	case goerrors.CategoryRateLimit:
		return SyncErrorRateLimited
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return SyncErrorCRMOperationFailed
	default:
		return SyncErrorInternal
	}
}

func syncHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRemoteNotFound reports whether err represents an HTTP 404 from the
// CRM, which the executor reconciles with a create fallback.
func IsRemoteNotFound(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code == http.StatusNotFound {
			return true
		}
		if richErr.Category == goerrors.CategoryNotFound {
			return true
		}
	}
	return false
}
