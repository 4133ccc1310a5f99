package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorEnvelope is the response body shared by every translated failure.
type ErrorEnvelope struct {
	Code          int               `json:"code"`
	Message       string            `json:"error"`
	InternalError *int              `json:"internal_error,omitempty"`
	Issues        map[string]string `json:"issues,omitempty"`
}

type ErrorTranslator struct {
	logger Logger
	mapper ErrorMapper
}

type ErrorTranslatorOption func(*ErrorTranslator)

func WithTranslatorLogger(logger Logger) ErrorTranslatorOption {
	return func(t *ErrorTranslator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTranslatorMapper lets unhandled errors be turned into domain errors before
// they fall back to the internal error envelope. A mapper returning nil or a
// 5xx error leaves the fault unhandled.
func WithTranslatorMapper(mapper ErrorMapper) ErrorTranslatorOption {
	return func(t *ErrorTranslator) {
		t.mapper = mapper
	}
}

func NewErrorTranslator(opts ...ErrorTranslatorOption) *ErrorTranslator {
	translator := &ErrorTranslator{}
	for _, opt := range opts {
		if opt != nil {
			opt(translator)
		}
	}
	translator.logger = ensureLogger(translator.logger)
	return translator
}

// Translate maps err to a response body and HTTP status. Forbidden errors give
// 403, assertion failures 400, go-errors values their own code (422 when
// unset) and anything else is logged and reported as a 500 internal error.
func (t *ErrorTranslator) Translate(ctx context.Context, err error) (ErrorEnvelope, int) {
	if err == nil {
		return ErrorEnvelope{Code: http.StatusOK}, http.StatusOK
	}
	if t == nil {
		t = NewErrorTranslator()
	}

	var forbidden *ForbiddenError
	if errors.As(err, &forbidden) {
		message := "forbidden"
		if forbidden != nil && strings.TrimSpace(forbidden.Reason) != "" {
			message = forbidden.Reason
		}
		return ErrorEnvelope{Code: http.StatusForbidden, Message: message}, http.StatusForbidden
	}

	var assertion *AssertionError
	if errors.As(err, &assertion) {
		message := "assert"
		if assertion != nil && strings.TrimSpace(assertion.Message) != "" {
			message = assertion.Message
		}
		return ErrorEnvelope{Code: http.StatusBadRequest, Message: message}, http.StatusBadRequest
	}

	var domainErr *goerrors.Error
	if goerrors.As(err, &domainErr) && domainErr != nil {
		return domainEnvelope(domainErr)
	}

	if t.mapper != nil {
		if mapped := t.mapper(err); mapped != nil && mapped.Code > 0 && mapped.Code < http.StatusInternalServerError {
			return domainEnvelope(mapped)
		}
	}

	logError(ctx, t.logger, "unhandled internal error", map[string]any{"error": err.Error()})
	return domainEnvelope(internalError(err))
}

func domainEnvelope(err *goerrors.Error) (ErrorEnvelope, int) {
	status := err.Code
	if status == 0 {
		status = http.StatusUnprocessableEntity
	}
	envelope := ErrorEnvelope{
		Code:    status,
		Message: err.Message,
	}
	if err.Code != 0 {
		internal := err.Code
		envelope.InternalError = &internal
	}
	if len(err.ValidationErrors) > 0 {
		envelope.Issues = err.ValidationMap()
	}
	return envelope, status
}

func internalError(source error) *goerrors.Error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "Internal error").
		WithCode(http.StatusInternalServerError).
		WithTextCode(AssemblyErrorInternal)
}
