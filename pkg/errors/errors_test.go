package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestConnectionError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	t.Run("transport failure", func(t *testing.T) {
		err := NewConnectionError("https://example.org:27012", 0, cause)
		if err.Code() != CodeConnection {
			t.Errorf("Code() = %s, want %s", err.Code(), CodeConnection)
		}
		if !strings.Contains(err.Error(), "failed to reach directory https://example.org:27012") {
			t.Errorf("unexpected message %q", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("expected cause to be preserved")
		}
	})

	t.Run("non-success status", func(t *testing.T) {
		err := NewConnectionError("https://example.org:27012", 503, nil)
		if err.StatusCode != 503 {
			t.Errorf("StatusCode = %d, want 503", err.StatusCode)
		}
		want := "directory https://example.org:27012 answered with HTTP 503"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})
}

func TestProtocolError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProtocolError
		expected string
	}{
		{
			name:     "default message",
			err:      NewProtocolError("", nil),
			expected: "unexpected directory response",
		},
		{
			name:     "with hds type",
			err:      NewProtocolError("topic lookup failed", nil).WithHDSType("hds.error.topic.missing"),
			expected: "topic lookup failed (hds.error.topic.missing)",
		},
		{
			name:     "with cause",
			err:      NewProtocolError("malformed identify", errors.New("unexpected EOF")),
			expected: "malformed identify: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.expected)
			}
			if tt.err.Code() != CodeProtocol {
				t.Errorf("Code() = %s, want %s", tt.err.Code(), CodeProtocol)
			}
		})
	}
}

func TestPartialDataError(t *testing.T) {
	cause := NewConnectionError("https://example.org:27012", 500, nil)
	err := NewPartialDataError("topic chat", cause)

	if err.Component != "topic chat" {
		t.Errorf("Component = %q", err.Component)
	}
	if err.Message() != "partial data: topic chat unavailable" {
		t.Errorf("Message() = %q", err.Message())
	}
	if !IsConnection(err) {
		t.Error("expected connection cause to be reachable through errors.As")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{"with field", "address", "must not be empty", "validation error: address: must not be empty"},
		{"without field", "", "invalid input", "validation error: invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, nil)
			if err.Error() != tt.expected {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.expected)
			}
			if err.Code() != CodeValidation {
				t.Errorf("Code() = %s, want %s", err.Code(), CodeValidation)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("topic", "chat")
	if err.Error() != "topic 'chat' not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if NewNotFoundError("host", "").Error() != "host not found" {
		t.Error("unexpected message for missing id")
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if Wrap(nil, "context") != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})

	t.Run("typed error keeps its code", func(t *testing.T) {
		original := NewProtocolError("not a directory", nil)
		wrapped := Wrap(original, "identify failed")

		if GetErrorCode(wrapped) != CodeProtocol {
			t.Errorf("GetErrorCode() = %s, want %s", GetErrorCode(wrapped), CodeProtocol)
		}
		if !IsProtocol(wrapped) {
			t.Error("expected wrapped error to still be a protocol error")
		}
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		wrapped := Wrap(errors.New("boom"), "step 3")
		if GetErrorCode(wrapped) != CodeInternal {
			t.Errorf("GetErrorCode() = %s, want %s", GetErrorCode(wrapped), CodeInternal)
		}
		if wrapped.Error() != "step 3: boom" {
			t.Errorf("Error() = %q", wrapped.Error())
		}
	})
}
