package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "unauthorized",
			err:           errors.New("status 401 Unauthorized"),
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "invalid api key",
			err:           errors.New("invalid api key provided"),
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "model missing",
			err:           errors.New("model 'nonexistent' not found"),
			wantType:      ErrorTypeModel,
			wantRetryable: false,
		},
		{
			name:          "connection refused",
			err:           errors.New("dial tcp 127.0.0.1:11434: connection refused"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "timeout",
			err:           errors.New("context deadline exceeded"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "rate limited",
			err:           errors.New("429 Too Many Requests"),
			wantType:      ErrorTypeUnknown,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           errors.New("unexpected status 503"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "unrecognized",
			err:           errors.New("something odd happened"),
			wantType:      ErrorTypeUnknown,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestClassifyError_PassesThroughExisting(t *testing.T) {
	orig := NewError(ErrorTypeAuth, "authentication failed", false, errors.New("401"))
	wrapped := fmt.Errorf("call failed: %w", orig)

	got := ClassifyError(wrapped)
	if got != orig {
		t.Error("existing *Error should pass through unchanged")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewError(ErrorTypeEndpoint, "server error", true, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsRetryable should unwrap to the llm error")
	}
}
