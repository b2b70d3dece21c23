package audit

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code returned to clients.
type ErrorCode string

// Error codes surfaced by the audit pipeline.
const (
	CodePlanLimit        ErrorCode = "PLAN_LIMIT"
	CodeNoInput          ErrorCode = "NO_INPUT"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeFetchFailed      ErrorCode = "FETCH_FAILED"
	CodeScreenshotFailed ErrorCode = "SCREENSHOT_FAILED"
	CodeCrawlFailed      ErrorCode = "CRAWL_FAILED"
	CodeModelError       ErrorCode = "MODEL_ERROR"
	CodeInvalidResponse  ErrorCode = "INVALID_RESPONSE"
	CodeMissingAPIKey    ErrorCode = "MISSING_API_KEY"
	CodeServerError      ErrorCode = "SERVER_ERROR"
)

// Error carries a code, a user-facing message, and the HTTP status to return.
// The wrapped cause is surfaced only as a best-effort diagnostic string.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Reason returns the diagnostic cause text, if any.
func (e *Error) Reason() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// NewError builds an *Error with an explicit HTTP status.
func NewError(code ErrorCode, message string, status int, cause error) *Error {
	return &Error{Code: code, Message: message, Status: status, Cause: cause}
}

// AsError coerces err into an *Error, wrapping unknown errors as SERVER_ERROR.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{
		Code:    CodeServerError,
		Message: "Analysis failed. Try again.",
		Status:  http.StatusInternalServerError,
		Cause:   err,
	}
}
