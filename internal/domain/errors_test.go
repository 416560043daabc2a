package domain

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewError(KindWizardNotFound, "wizard not found", http.StatusNotFound),
			want: "[wizard_not_found] wizard not found",
		},
		{
			name: "with cause",
			err:  NewError(KindNavigationFailed, "navigation failed", http.StatusBadGateway).WithCause(errors.New("dns lookup failed")),
			want: "[navigation_failed] navigation failed: dns lookup failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(KindBrowserCrash, "crashed", http.StatusInternalServerError).WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should unwrap to the cause")
	}
}

func TestAppError_Is(t *testing.T) {
	a := NewError(KindSessionExpired, "expired", http.StatusNotFound)
	b := NewError(KindSessionExpired, "also expired but different message", http.StatusNotFound)
	c := NewError(KindWizardNotFound, "not found", http.StatusNotFound)

	if !errors.Is(a, b) {
		t.Error("two AppErrors with the same kind should satisfy errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("two AppErrors with different kinds should not satisfy errors.Is")
	}
}

func TestAppError_Builders(t *testing.T) {
	err := NewError(KindValidationError, "bad input", http.StatusBadRequest).
		WithDetails("field failed pattern check").
		WithMetadata("field_id", "ssn").
		WithRequestID("req-123").
		WithRetry(5 * time.Second)

	if err.Details != "field failed pattern check" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Metadata["field_id"] != "ssn" {
		t.Errorf("Metadata[field_id] = %v", err.Metadata["field_id"])
	}
	if err.RequestID != "req-123" {
		t.Errorf("RequestID = %q", err.RequestID)
	}
	if !err.Retryable || err.RetryAfter != 5*time.Second {
		t.Errorf("Retryable/RetryAfter = %v/%v", err.Retryable, err.RetryAfter)
	}
}

func TestErrSessionExpired(t *testing.T) {
	err := ErrSessionExpired("sess-1")
	if err.Code != KindSessionExpired {
		t.Errorf("Code = %v, want %v", err.Code, KindSessionExpired)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %v, want %v", err.HTTPStatus, http.StatusNotFound)
	}
	if err.Metadata["session_id"] != "sess-1" {
		t.Errorf("session_id metadata = %v", err.Metadata["session_id"])
	}
}

func TestErrNavigationFailed(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_REFUSED")
	err := ErrNavigationFailed("https://example.com/step2", cause)

	if err.Code != KindNavigationFailed {
		t.Errorf("Code = %v, want %v", err.Code, KindNavigationFailed)
	}
	if !errors.Is(err, cause) {
		t.Error("should wrap the navigation cause")
	}
}

func TestErrElementNotInteractable_FallThroughShape(t *testing.T) {
	err := ErrElementNotInteractable("#Radio_MaritalStatusUnmarried", "click")
	if err.Metadata["action"] != "click" {
		t.Errorf("action metadata = %v, want click", err.Metadata["action"])
	}
	if err.Metadata["selector"] != "#Radio_MaritalStatusUnmarried" {
		t.Errorf("selector metadata = %v", err.Metadata["selector"])
	}
}

func TestErrTimeout_LayerSelection(t *testing.T) {
	tests := []struct {
		layer    int
		wantKind string
	}{
		{1, KindTimeoutL1},
		{2, KindTimeoutL2},
		{3, KindTimeoutL3},
	}

	for _, tt := range tests {
		err := ErrTimeout(tt.layer, "fill #field", 5*time.Second)
		if err.Code != tt.wantKind {
			t.Errorf("layer %d: Code = %v, want %v", tt.layer, err.Code, tt.wantKind)
		}
		if err.HTTPStatus != http.StatusGatewayTimeout {
			t.Errorf("layer %d: HTTPStatus = %v, want %v", tt.layer, err.HTTPStatus, http.StatusGatewayTimeout)
		}
	}
}

func TestErrMissingData(t *testing.T) {
	err := ErrMissingData("birth_year", "Year of birth")
	if err.Code != KindMissingData {
		t.Errorf("Code = %v, want %v", err.Code, KindMissingData)
	}
	if err.Metadata["field_id"] != "birth_year" {
		t.Errorf("field_id metadata = %v", err.Metadata["field_id"])
	}
	if err.Metadata["label"] != "Year of birth" {
		t.Errorf("label metadata = %v", err.Metadata["label"])
	}
}

func TestErrWizardNotFound(t *testing.T) {
	err := ErrWizardNotFound("acme-onboarding")
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %v, want %v", err.HTTPStatus, http.StatusNotFound)
	}
}

func TestErrSchemaInvalid(t *testing.T) {
	cause := errors.New("unexpected token")
	err := ErrSchemaInvalid("acme-onboarding", cause)
	if err.Code != KindSchemaInvalid {
		t.Errorf("Code = %v, want %v", err.Code, KindSchemaInvalid)
	}
	if !errors.Is(err, cause) {
		t.Error("should wrap the parse cause")
	}
}

func TestIsAppError_AsAppError(t *testing.T) {
	wrapped := NewError(KindInternal, "boom", http.StatusInternalServerError)
	plain := errors.New("plain error")

	if !IsAppError(wrapped) {
		t.Error("IsAppError(wrapped) = false, want true")
	}
	if IsAppError(plain) {
		t.Error("IsAppError(plain) = true, want false")
	}

	got, ok := AsAppError(wrapped)
	if !ok || got.Code != KindInternal {
		t.Errorf("AsAppError() = %v, %v", got, ok)
	}
}

func TestGetHTTPStatus(t *testing.T) {
	if got := GetHTTPStatus(ErrWizardNotFound("x")); got != http.StatusNotFound {
		t.Errorf("GetHTTPStatus() = %v, want %v", got, http.StatusNotFound)
	}
	if got := GetHTTPStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("GetHTTPStatus(plain) = %v, want %v", got, http.StatusInternalServerError)
	}
}

func TestGetErrorKind(t *testing.T) {
	if got := GetErrorKind(ErrSessionExpired("x")); got != KindSessionExpired {
		t.Errorf("GetErrorKind() = %v, want %v", got, KindSessionExpired)
	}
	if got := GetErrorKind(errors.New("plain")); got != KindInternal {
		t.Errorf("GetErrorKind(plain) = %v, want %v", got, KindInternal)
	}
}

func TestIsRetryableKind(t *testing.T) {
	retryable := []string{KindNavigationFailed, KindElementNotFound, KindElementNotInteractable}
	for _, k := range retryable {
		if !IsRetryableKind(k) {
			t.Errorf("IsRetryableKind(%s) = false, want true", k)
		}
	}

	terminal := []string{KindWizardNotFound, KindStructureInvalid, KindSchemaInvalid, KindSessionExpired, KindBrowserCrash}
	for _, k := range terminal {
		if IsRetryableKind(k) {
			t.Errorf("IsRetryableKind(%s) = true, want false", k)
		}
	}
}
