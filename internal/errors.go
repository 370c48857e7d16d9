package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDescription ErrorCode = "INVALID_DESCRIPTION"
	ErrCodeInvalidCategory    ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidDate        ErrorCode = "INVALID_DATE"
	ErrCodeAmountTooLow       ErrorCode = "AMOUNT_TOO_LOW"
	ErrCodeAmountTooHigh      ErrorCode = "AMOUNT_TOO_HIGH"
	ErrCodeNoItems            ErrorCode = "NO_ITEMS"
	ErrCodeDuplicateMeal      ErrorCode = "DUPLICATE_MEAL"
	ErrCodeInvalidTripDates   ErrorCode = "INVALID_TRIP_DATES"
	ErrCodeInvalidRole        ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidStatus      ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidDecision    ErrorCode = "INVALID_DECISION"
	ErrCodeMissingDecision    ErrorCode = "MISSING_DECISION"
	ErrCodeMissingReason      ErrorCode = "MISSING_REASON"
	ErrCodeMissingComment     ErrorCode = "MISSING_COMMENT"
	ErrCodeUnknownWarning     ErrorCode = "UNKNOWN_WARNING_CODE"
	ErrCodeInvalidQuery       ErrorCode = "INVALID_QUERY"

	ErrCodeReportNotFound ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeReviewNotFound ErrorCode = "EXCEPTION_REVIEW_NOT_FOUND"

	ErrCodeNotSubmitter      ErrorCode = "NOT_SUBMITTER"
	ErrCodeReviewerRole      ErrorCode = "REVIEWER_ROLE_MISMATCH"
	ErrCodeInvalidTransition ErrorCode = "INVALID_REPORT_STATUS"
	ErrCodeSelfApproval      ErrorCode = "SELF_APPROVAL"
	ErrCodeApproverRole      ErrorCode = "APPROVER_ROLE_MISMATCH"
	ErrCodeConcurrentUpdate  ErrorCode = "CONCURRENT_UPDATE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy so shared sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches sentinels by type and code, so copies made by WithCause still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInvalidStateError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrReportNotFound = NewNotFoundError("report not found", ErrCodeReportNotFound)
	ErrUserNotFound   = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrReviewNotFound = NewNotFoundError("exception review not found", ErrCodeReviewNotFound)

	ErrNotSubmitter   = NewForbiddenError("only the submitter may act on this report", ErrCodeNotSubmitter)
	ErrReviewerRole   = NewForbiddenError("reviewer role does not match the review stage", ErrCodeReviewerRole)
	ErrInvalidStatus  = NewInvalidStateError("report cannot be changed in its current status", ErrCodeInvalidTransition)
	ErrSelfApproval   = NewInvalidStateError("cannot approve own report", ErrCodeSelfApproval)
	ErrApproverRole   = NewInvalidStateError("approver role does not match the approval stage", ErrCodeApproverRole)
	ErrConcurrentEdit = NewInvalidStateError("report was modified concurrently, reload and retry", ErrCodeConcurrentUpdate)

	ErrNoItems = NewValidationError("report must contain at least one item", ErrCodeNoItems)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

func IsNotFound(err error) bool         { return isType(err, ErrorTypeNotFound) }
func IsInvalidArgument(err error) bool  { return isType(err, ErrorTypeValidation) }
func IsInvalidState(err error) bool     { return isType(err, ErrorTypeInvalidState) }
func IsPermissionDenied(err error) bool { return isType(err, ErrorTypeForbidden) }

type Response struct {
	Error *AppError `json:"error"`
}

// ToHTTPResponse hides the message of internal faults; callers only see a generic text.
func (e *AppError) ToHTTPResponse() (int, interface{}) {
	if e.Type == ErrorTypeInternal {
		return e.StatusCode, Response{Error: &AppError{Type: e.Type, Code: e.Code, Message: "internal server error"}}
	}
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
