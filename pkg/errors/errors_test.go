package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeUnknownPackage, "package %s is not installed", "requests")

	if err.Code != ErrCodeUnknownPackage {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnknownPackage)
	}

	if err.Message != "package requests is not installed" {
		t.Errorf("Message = %v, want %v", err.Message, "package requests is not installed")
	}

	expected := "UNKNOWN_PACKAGE: package requests is not installed"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeCorruptMetadata, cause, "read METADATA")

	if err.Code != ErrCodeCorruptMetadata {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeCorruptMetadata)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

type codedError struct{}

func (codedError) Error() string   { return "coded" }
func (codedError) ErrorCode() Code { return ErrCodeUnsatisfied }

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeConflictingPin, "test"),
			code:     ErrCodeConflictingPin,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeConflictingPin, "test"),
			code:     ErrCodeUnknownPackage,
			expected: false,
		},
		{
			name:     "outer code wins",
			err:      Wrap(ErrCodeFetchFailed, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeFetchFailed,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("lockadd: %w", New(ErrCodeConflictingPin, "inner")),
			code:     ErrCodeConflictingPin,
			expected: true,
		},
		{
			name:     "coder",
			err:      fmt.Errorf("resolve: %w", codedError{}),
			code:     ErrCodeUnsatisfied,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeAlreadyInstalled, "test"),
			expected: ErrCodeAlreadyInstalled,
		},
		{
			name:     "plain",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "Error with cause",
			err:      Wrap(ErrCodeFetchFailed, errors.New("exit status 1"), "pip install requests==2.0"),
			expected: "pip install requests==2.0: exit status 1",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
