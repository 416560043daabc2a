// Package domain carries the wizard automation core's shared error
// taxonomy (spec.md §7) and structural types.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error kinds, one per spec.md §7 taxonomy row.
const (
	KindSessionExpired         = "session_expired"
	KindNavigationFailed       = "navigation_failed"
	KindElementNotFound        = "element_not_found"
	KindElementNotInteractable = "element_not_interactable"
	KindTimeoutL1              = "timeout_l1"
	KindTimeoutL2              = "timeout_l2"
	KindTimeoutL3              = "timeout_l3"
	KindValidationError        = "validation_error"
	KindMissingData            = "missing_data"
	KindWizardNotFound         = "wizard_not_found"
	KindStructureInvalid       = "structure_invalid"
	KindSchemaInvalid          = "schema_invalid"
	KindBrowserCrash           = "browser_crash"
	KindInternal               = "internal_error"
)

// AppError is the base error type for all application errors.
type AppError struct {
	// Code for programmatic handling; one of the Kind* constants above.
	Code string `json:"code"`

	// Message is human-readable.
	Message string `json:"message"`

	// Details is an optional, longer description for developers.
	Details string `json:"details,omitempty"`

	// HTTPStatus is the status an enclosing HTTP layer should surface.
	HTTPStatus int `json:"-"`

	// Cause is the original error, if any.
	Cause error `json:"-"`

	// Metadata carries structured context (selector, field_id, wizard_id...).
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is by comparing error kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithRetry(after time.Duration) *AppError {
	e.Retryable = true
	e.RetryAfter = after
	return e
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// NewError creates a new AppError of the given kind.
func NewError(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now().UTC(),
	}
}

// ErrSessionExpired: C4 lookup miss — a tool call referenced an
// unknown or reaped discovery session. The driver starts a new one.
func ErrSessionExpired(sessionID string) *AppError {
	return NewError(KindSessionExpired, fmt.Sprintf("session not found or expired: %s", sessionID), http.StatusNotFound).
		WithMetadata("session_id", sessionID)
}

// ErrNavigationFailed: C1 goto or inter-page click exhausted its
// two in-component retries.
func ErrNavigationFailed(url string, err error) *AppError {
	return NewError(KindNavigationFailed, fmt.Sprintf("navigation failed: %s", url), http.StatusBadGateway).
		WithMetadata("url", url).
		WithCause(err)
}

// ErrElementNotFound: C2 locator miss after exhausting alternative
// selectors.
func ErrElementNotFound(selector string) *AppError {
	return NewError(KindElementNotFound, fmt.Sprintf("element not found: %s", selector), http.StatusUnprocessableEntity).
		WithMetadata("selector", selector)
}

// ErrElementNotInteractable: C2 visibility/overlay failure that did
// not fall through to javascript_click (e.g. a non radio/checkbox
// target, or javascript_click itself failing).
func ErrElementNotInteractable(selector, action string) *AppError {
	return NewError(KindElementNotInteractable, fmt.Sprintf("element not interactable: %s (action=%s)", selector, action), http.StatusUnprocessableEntity).
		WithMetadata("selector", selector).
		WithMetadata("action", action)
}

// ErrTimeout builds the layer-specific timeout error. layer must be
// 1, 2, or 3 — L4 is the enclosing caller's own deadline, not ours to
// construct.
func ErrTimeout(layer int, operation string, budget time.Duration) *AppError {
	var kind string
	switch layer {
	case 1:
		kind = KindTimeoutL1
	case 2:
		kind = KindTimeoutL2
	default:
		kind = KindTimeoutL3
	}
	return NewError(kind, fmt.Sprintf("timed out: %s", operation), http.StatusGatewayTimeout).
		WithMetadata("operation", operation).
		WithMetadata("budget", budget.String())
}

// ErrValidation: C6 schema validation rejected supplied user data.
func ErrValidation(message string) *AppError {
	return NewError(KindValidationError, message, http.StatusBadRequest)
}

// ErrValidationField attaches the offending field to a validation error.
func ErrValidationField(fieldID, message string) *AppError {
	return NewError(KindValidationError, message, http.StatusBadRequest).
		WithMetadata("field_id", fieldID)
}

// ErrMissingData: C6 found a required field absent from user data.
// label is the schema's description for the field, per spec.md S3.
func ErrMissingData(fieldID, label string) *AppError {
	return NewError(KindMissingData, fmt.Sprintf("missing required field: %s", fieldID), http.StatusBadRequest).
		WithMetadata("field_id", fieldID).
		WithMetadata("label", label)
}

// ErrWizardNotFound: C9 catalog has no such wizard, or it exists but
// failed availability checks — schema_invalid/structure_invalid also
// surface to callers as wizard_not_found, per spec.md §4.9.
func ErrWizardNotFound(wizardID string) *AppError {
	return NewError(KindWizardNotFound, fmt.Sprintf("wizard not found or unavailable: %s", wizardID), http.StatusNotFound).
		WithMetadata("wizard_id", wizardID)
}

// ErrStructureInvalid: C10 rejected a discovered wizard structure.
// Fatal for discovery completion; the partial artifact is retained.
func ErrStructureInvalid(reason string) *AppError {
	return NewError(KindStructureInvalid, fmt.Sprintf("wizard structure invalid: %s", reason), http.StatusUnprocessableEntity)
}

// ErrSchemaInvalid: the data schema failed to parse as draft-07 JSON
// Schema. The owning wizard is marked unavailable, not deleted.
func ErrSchemaInvalid(wizardID string, err error) *AppError {
	return NewError(KindSchemaInvalid, fmt.Sprintf("schema invalid for wizard %s", wizardID), http.StatusUnprocessableEntity).
		WithMetadata("wizard_id", wizardID).
		WithCause(err)
}

// ErrBrowserCrash: C1 observed an unexpected browser/context
// disconnect. Fatal for the in-flight request; the caller destroys
// the owning session.
func ErrBrowserCrash(sessionID string, err error) *AppError {
	return NewError(KindBrowserCrash, "browser disconnected unexpectedly", http.StatusInternalServerError).
		WithMetadata("session_id", sessionID).
		WithCause(err)
}

// ErrInternal wraps an unclassified internal failure.
func ErrInternal(message string, err error) *AppError {
	if message == "" {
		message = "internal error"
	}
	return NewError(KindInternal, message, http.StatusInternalServerError).WithCause(err)
}

// IsAppError reports whether err is (or wraps) an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts err to *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// WrapError wraps a standard error into an AppError of the given kind.
func WrapError(err error, code, message string, httpStatus int) *AppError {
	return NewError(code, message, httpStatus).WithCause(err)
}

// GetHTTPStatus returns the HTTP status an enclosing layer should use.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetErrorKind returns the error kind for err, or KindInternal if err
// is not an *AppError.
func GetErrorKind(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return KindInternal
}

// IsRetryableKind reports whether a kind is ever eligible for the
// in-component retry policies described in spec.md §4.8 (navigation
// retries with back-off; single-retry element primitives). Terminal
// kinds like wizard_not_found or structure_invalid are never retried.
func IsRetryableKind(kind string) bool {
	switch kind {
	case KindNavigationFailed, KindElementNotFound, KindElementNotInteractable:
		return true
	}
	return false
}
