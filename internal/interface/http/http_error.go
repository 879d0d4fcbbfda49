package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var codeStatus = map[string]int{
	apperrors.CodeInvalidInput:    http.StatusBadRequest,
	apperrors.CodeNotFound:        http.StatusNotFound,
	apperrors.CodeUserNotFound:    http.StatusNotFound,
	apperrors.CodeForbidden:       http.StatusForbidden,
	apperrors.CodeConflict:        http.StatusConflict,
	apperrors.CodeUsernameTaken:   http.StatusConflict,
	apperrors.CodeUpstream:        http.StatusBadGateway,
	apperrors.CodeStorage:         http.StatusInternalServerError,
	apperrors.CodeInvalidToken:    http.StatusUnauthorized,
	apperrors.CodeInvalidCreds:    http.StatusUnauthorized,
	apperrors.CodeUnauthenticated: http.StatusUnauthorized,
	apperrors.CodeAuth:            http.StatusInternalServerError,
}

// fromAppError maps a domain error onto its HTTP status. Errors without a
// known code become 500 with the fallback code.
func fromAppError(err error, fallbackCode string) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	code := apperrors.CodeOf(err)
	if status, ok := codeStatus[code]; ok {
		return NewHTTPError(status, code, errMessage(err), err)
	}
	return NewHTTPError(http.StatusInternalServerError, fallbackCode, errMessage(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
