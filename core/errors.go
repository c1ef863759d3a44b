package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	RelayErrorBadInput             = "RELAY_BAD_INPUT"
	RelayErrorHandlerNotFound      = "RELAY_HANDLER_NOT_FOUND"
	RelayErrorEntryNotFound        = "RELAY_ENTRY_NOT_FOUND"
	RelayErrorServiceNotConfigured = "RELAY_SERVICE_NOT_CONFIGURED"
	RelayErrorAuthFailed           = "RELAY_AUTH_FAILED"
	RelayErrorDeliveryFailed       = "RELAY_DELIVERY_FAILED"
	RelayErrorEncodingFailed       = "RELAY_ENCODING_FAILED"
	RelayErrorInternal             = "RELAY_INTERNAL_ERROR"
)

// RelayErrorMapper folds arbitrary errors into the go-errors envelope with
// relay text codes, preferring an already-rich error when present.
func RelayErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureRelayErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not configured"):
		return newRelayError(err.Error(), goerrors.CategoryOperation, RelayErrorServiceNotConfigured)
	case strings.Contains(msg, "authentication failed"), strings.Contains(msg, "forbidden"):
		return newRelayError(err.Error(), goerrors.CategoryAuth, RelayErrorAuthFailed)
	case strings.Contains(msg, "handler") && strings.Contains(msg, "not registered"):
		return newRelayError(err.Error(), goerrors.CategoryNotFound, RelayErrorHandlerNotFound)
	case strings.Contains(msg, "entry not found"):
		return newRelayError(err.Error(), goerrors.CategoryNotFound, RelayErrorEntryNotFound)
	case strings.Contains(msg, "encode"), strings.Contains(msg, "parse"):
		return newRelayError(err.Error(), goerrors.CategoryBadInput, RelayErrorEncodingFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newRelayError(err.Error(), goerrors.CategoryBadInput, RelayErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureRelayErrorEnvelope(mapped)
}

func newRelayError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureRelayErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureRelayErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = relayHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultRelayTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultRelayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return RelayErrorBadInput
	case goerrors.CategoryNotFound:
		return RelayErrorEntryNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return RelayErrorAuthFailed
	case goerrors.CategoryExternal:
		return RelayErrorDeliveryFailed
	case goerrors.CategoryOperation:
		return RelayErrorServiceNotConfigured
	default:
		return RelayErrorInternal
	}
}

func relayHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
