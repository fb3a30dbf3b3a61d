package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[RSS1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[RSS1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("host", "example.com").
				WithContext("port", 1433),
			expected: "[RSS1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("login timeout expired")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect")

	if appErr.Cause != baseErr {
		t.Error("Wrapped error should contain original error as cause")
	}
	if !errors.Is(appErr, baseErr) {
		t.Error("errors.Is should see the cause through Unwrap")
	}
	if Wrap(nil, ErrCodeInternal, "nothing") != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeQueryFailed, "inner").WithContext("view", "dbo.trips")
	outer := Wrap(inner, ErrCodeInternal, "outer")

	if outer.Context["view"] != "dbo.trips" {
		t.Errorf("Expected inherited context, got %v", outer.Context)
	}
}

func TestKindOf(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"connection", ConnectionError("no route", cause), KindConnection},
		{"authentication", AuthenticationError("bad login", cause), KindConnection},
		{"timeout", ConnectionTimeout("slow", cause), KindConnection},
		{"catalog", CatalogError("list failed", "select 1", cause), KindQuery},
		{"query", QueryError("describe failed", "EXEC x", cause), KindQuery},
		{"permission", QueryError("describe failed", "EXEC x", fmt.Errorf("Permission denied on file")), KindQuery},
		{"extraction", ExtractionMiss("dbo.v"), KindExtraction},
		{"filesystem", FilesystemError("write failed", "/tmp/x", cause), KindFilesystem},
		{"config", ConfigError("bad mode", "extraction.mode"), KindConfig},
		{"missing config", MissingConfig("missing server", "engine.server"), KindConfig},
		{"wrapped", fmt.Errorf("outer: %w", ExtractionMiss("dbo.v")), KindExtraction},
		{"plain", cause, KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, got)
			}
		})
	}
}

func TestQueryErrorPermission(t *testing.T) {
	err := QueryError("describe failed", "EXEC sp_describe_first_result_set", fmt.Errorf("Access denied to path"))
	if err.Code != ErrCodeSQLPermission {
		t.Errorf("Expected code %s, got %s", ErrCodeSQLPermission, err.Code)
	}
	if len(err.Suggestions) == 0 {
		t.Error("Expected suggestions for permission failures")
	}
}

func TestRecoverable(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"query", QueryError("describe failed", "EXEC x", cause), true},
		{"extraction", ExtractionMiss("dbo.v"), true},
		{"filesystem", FilesystemError("write failed", "/tmp/x", cause), true},
		{"catalog", CatalogError("list failed", "select 1", cause), false},
		{"connection", ConnectionError("no route", cause), false},
		{"plain", cause, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("Expected recoverable %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCatalogErrorCodes(t *testing.T) {
	if got := CatalogError("list failed", "select 1", fmt.Errorf("pool paused")).Code; got != ErrCodeCatalogFailed {
		t.Errorf("Expected code %s, got %s", ErrCodeCatalogFailed, got)
	}
	if got := CatalogError("list failed", "select 1", fmt.Errorf("permission denied")).Code; got != ErrCodeSQLPermission {
		t.Errorf("Expected code %s, got %s", ErrCodeSQLPermission, got)
	}
}

func TestFilesystemErrorPermission(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "/out/create", Err: fs.ErrPermission}
	err := FilesystemError("write failed", "/out/create", cause)
	if err.Code != ErrCodeFilePermission {
		t.Errorf("Expected code %s, got %s", ErrCodeFilePermission, err.Code)
	}
	if KindOf(err) != KindFilesystem {
		t.Errorf("Expected kind %s, got %s", KindFilesystem, KindOf(err))
	}

	if got := FilesystemError("write failed", "/out", fmt.Errorf("disk full")).Code; got != ErrCodeFileOperation {
		t.Errorf("Expected code %s, got %s", ErrCodeFileOperation, got)
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("view failed: %w", ExtractionMiss("dbo.v"))
	if !errors.Is(err, New(ErrCodeExtractionMiss, "")) {
		t.Error("errors.Is should match on error code")
	}
	if GetErrorCode(err) != ErrCodeExtractionMiss {
		t.Errorf("Expected code %s, got %s", ErrCodeExtractionMiss, GetErrorCode(err))
	}
	if GetErrorCode(fmt.Errorf("plain")) != ErrCodeInternal {
		t.Error("Plain errors should map to the internal code")
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdef", 3); got != "abc..." {
		t.Errorf("Expected abc..., got %s", got)
	}
	if got := truncateString("abc", 3); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}
}
