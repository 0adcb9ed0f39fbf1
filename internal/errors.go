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
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypePrecondition     ErrorType = "PRECONDITION_FAILED"
	ErrorTypeConflict         ErrorType = "CONFLICT"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeExpired          ErrorType = "EXPIRED"
	ErrorTypeAlreadyConsumed  ErrorType = "ALREADY_CONSUMED"
	ErrorTypeStaleReference   ErrorType = "STALE_REFERENCE"
	ErrorTypePermissionDenied ErrorType = "PERMISSION_DENIED"
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrorTypeWarning          ErrorType = "WARNING"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal         ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeRequiredField        ErrorCode = "REQUIRED_FIELD"
	ErrCodeInvalidEmail         ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidLevel         ErrorCode = "INVALID_LEVEL"
	ErrCodeInvalidCode          ErrorCode = "INVALID_CODE"
	ErrCodeInvalidAction        ErrorCode = "INVALID_ACTION"
	ErrCodeInvalidStatus        ErrorCode = "INVALID_STATUS"
	ErrCodeWeakPassword         ErrorCode = "WEAK_PASSWORD"
	ErrCodeRoleDepartmentNeeded ErrorCode = "ROLE_AND_DEPARTMENT_REQUIRED"

	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeInvitationClosed  ErrorCode = "INVITATION_NOT_ACTIVE"
	ErrCodeRoleInUse         ErrorCode = "ROLE_IN_USE"
	ErrCodeDepartmentInUse   ErrorCode = "DEPARTMENT_IN_USE"

	ErrCodeEmailTaken          ErrorCode = "EMAIL_TAKEN"
	ErrCodeRoleNameTaken       ErrorCode = "ROLE_NAME_TAKEN"
	ErrCodeRoleLevelTaken      ErrorCode = "ROLE_LEVEL_TAKEN"
	ErrCodeDepartmentCodeTaken ErrorCode = "DEPARTMENT_CODE_TAKEN"
	ErrCodeConcurrentIssue     ErrorCode = "CONCURRENT_INVITATION"
	ErrCodeStatusChanged       ErrorCode = "STATUS_CHANGED"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeDepartmentNotFound ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeInvitationNotFound ErrorCode = "INVITATION_NOT_FOUND"

	ErrCodeInvitationExpired  ErrorCode = "INVITATION_EXPIRED"
	ErrCodeInvitationConsumed ErrorCode = "INVITATION_ALREADY_CONSUMED"
	ErrCodeStaleRole          ErrorCode = "STALE_ROLE"
	ErrCodeStaleDepartment    ErrorCode = "STALE_DEPARTMENT"

	ErrCodeInsufficientPermission ErrorCode = "INSUFFICIENT_PERMISSION"
	ErrCodeMissingActor           ErrorCode = "MISSING_ACTOR"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeNoApprovalBand ErrorCode = "NO_APPROVAL_BAND"
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
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
			return e.GetDetailedMessage()
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

// Is matches on Type and Code so that package-level sentinels work with errors.Is
// even when the returned error is a copy carrying a cause or details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

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

func NewPreconditionError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypePrecondition,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
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

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExpiredError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExpired,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func NewAlreadyConsumedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyConsumed,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewStaleReferenceError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeStaleReference,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewPermissionDeniedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypePermissionDenied,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewWarning builds a non-fatal error. Handlers report it alongside a successful response.
func NewWarning(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeWarning,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusOK,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrRoleNotFound       = NewNotFoundError("role not found", ErrCodeRoleNotFound)
	ErrDepartmentNotFound = NewNotFoundError("department not found", ErrCodeDepartmentNotFound)
	ErrInvitationNotFound = NewNotFoundError("invitation not found", ErrCodeInvitationNotFound)

	ErrInvitationExpired  = NewExpiredError("invitation has expired", ErrCodeInvitationExpired)
	ErrInvitationConsumed = NewAlreadyConsumedError("invitation has already been used or superseded", ErrCodeInvitationConsumed)
	ErrConcurrentIssue    = NewConflictError("another invitation is being issued for this email", ErrCodeConcurrentIssue)
	ErrStatusChanged      = NewConflictError("user status changed concurrently", ErrCodeStatusChanged)

	ErrMissingActor     = NewUnauthorizedError("no authenticated actor", ErrCodeMissingActor)
	ErrPermissionDenied = NewPermissionDeniedError("insufficient permissions", ErrCodeInsufficientPermission)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewPermissionDeniedError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
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
		Message: e.GetDetailedMessage(),
		Details: e.Details,
	})
}
