package responder

import (
	stderrors "errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/leeforge/imagekit/errors"
	"github.com/leeforge/imagekit/http/binding"
	"github.com/leeforge/imagekit/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var encodeFailed = []byte("{\"error\":{\"code\":5000,\"message\":\"encode failed\"}}")

// writeJSON is the internal helper for all global functions
func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailed)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// newMeta fills the trace id from the request context unless an option sets it.
func newMeta(r *http.Request, opts []Option) Meta {
	meta := NewMeta(opts...)
	if meta.TraceId == "" && r != nil {
		meta.TraceId = logging.GetRequestID(r.Context())
	}
	return *meta
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	writeJSON(w, status, &Response{
		Data: data,
		Meta: newMeta(r, opts),
	})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err Error, opts ...Option) {
	writeJSON(w, status, &Response{
		Error: &err,
		Meta:  newMeta(r, opts),
	})
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// Created responds with 201 Created and data
func Created(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusCreated, data, opts...)
}

func withMessage(e Error, message string) Error {
	if message != "" {
		e.Message = message
	}
	return e
}

// BadRequest responds with 400 Bad Request
func BadRequest(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, withMessage(ErrBadRequest, message), opts...)
}

// NotFound responds with 404 Not Found
func NotFound(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusNotFound, withMessage(ErrRouteNotFound, message), opts...)
}

// PayloadTooLarge responds with 413 Request Entity Too Large
func PayloadTooLarge(w http.ResponseWriter, r *http.Request, limit int64, opts ...Option) {
	err := ErrPayloadTooLarge
	err.Details = map[string]int64{"limit": limit}
	WriteError(w, r, http.StatusRequestEntityTooLarge, err, opts...)
}

// TooManyRequests responds with 429 Too Many Requests
func TooManyRequests(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusTooManyRequests, withMessage(ErrTooManyRequests, message), opts...)
}

// ValidationError responds with 400 Bad Request and field-level details
func ValidationError(w http.ResponseWriter, r *http.Request, details []FieldError, opts ...Option) {
	err := NewErrorWithDetails(ErrCodeValidationFailed, "", details)
	WriteError(w, r, http.StatusBadRequest, err, opts...)
}

// BindError responds with 400 Bad Request for binding errors
func BindError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	err := NewErrorWithDetails(ErrCodeBindFailed, "", details)
	WriteError(w, r, http.StatusBadRequest, err, opts...)
}

// InternalServerError responds with 500 Internal Server Error
func InternalServerError(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusInternalServerError, withMessage(ErrInternalServer, message), opts...)
}

// ServiceUnavailable responds with 503 Service Unavailable
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusServiceUnavailable, withMessage(ErrServiceUnavailable, message), opts...)
}

// Fail renders err as an error envelope. Binding and body-size errors become
// 4xx responses; AppErrors use their HTTP status and a code per error type.
// Server-side failures are logged with the request logger.
func Fail(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	var (
		validation binding.ValidationErrors
		bindErr    *binding.BindError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case stderrors.As(err, &validation):
		details := make([]FieldError, 0, len(validation))
		for _, ve := range validation {
			details = append(details, FieldError{Field: ve.Field, Message: ve.Message})
		}
		ValidationError(w, r, details, opts...)
		return
	case stderrors.As(err, &bindErr):
		BindError(w, r, bindErr, opts...)
		return
	case stderrors.As(err, &tooLarge):
		PayloadTooLarge(w, r, tooLarge.Limit, opts...)
		return
	}

	appErr := errors.FromError(err)
	status := errors.HTTPStatusOf(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("http.request.failed",
			zap.Error(err),
			zap.String("type", string(appErr.Type)),
			zap.Int("status", status),
		)
	}

	message := appErr.Message
	if status == http.StatusInternalServerError {
		message = ""
	}
	WriteError(w, r, status, NewErrorWithDetails(codeOf(appErr.Type), message, appErr.Details), opts...)
}

func codeOf(t errors.ErrorType) int {
	switch t {
	case errors.ErrorTypeInvalid:
		return ErrCodeValidationFailed
	case errors.ErrorTypeUnknownFormat:
		return ErrCodeUnknownFormat
	case errors.ErrorTypeDecode:
		return ErrCodeUndecodable
	case errors.ErrorTypeTimeout:
		return ErrCodeTimeout
	case errors.ErrorTypeUnavailable:
		return ErrCodeServiceUnavailable
	case errors.ErrorTypeExternal:
		return ErrCodeExternalService
	default:
		return ErrCodeInternalServer
	}
}
