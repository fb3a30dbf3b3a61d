package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	apperrors "rowsetstats/pkg/errors"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)
	fn()
	return buf.String()
}

func withoutColor(t *testing.T) {
	t.Helper()
	original := supportsColor
	supportsColor = false
	t.Cleanup(func() { supportsColor = original })
}

func TestColorFunc(t *testing.T) {
	original := supportsColor
	defer func() {
		supportsColor = original
	}()

	tests := []struct {
		name          string
		supportsColor bool
		expectColored bool
	}{
		{"with color support", true, true},
		{"without color support", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			supportsColor = tt.supportsColor

			funcs := []func(string) string{
				ColorSuccess,
				ColorError,
				ColorWarning,
				ColorInfo,
				ColorProgress,
				ColorBold,
				ColorDim,
			}

			for _, colorFunc := range funcs {
				result := colorFunc("test text")
				if tt.expectColored && result == "test text" {
					t.Error("Expected colored output, got plain text")
				}
				if !tt.expectColored && result != "test text" {
					t.Error("Expected plain text, got colored output")
				}
			}
		})
	}
}

func TestShowHeader(t *testing.T) {
	withoutColor(t)
	out := captureOutput(t, func() { ShowHeader("Test Title") })

	if !strings.Contains(out, "Test Title") {
		t.Errorf("header missing title: %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if len(lines[0]) != len(lines[1]) {
		t.Errorf("title line not padded to border width: %q / %q", lines[0], lines[1])
	}
}

func TestShowHeaderLongTitle(t *testing.T) {
	withoutColor(t)
	out := captureOutput(t, func() { ShowHeader(strings.Repeat("x", 80)) })

	if !strings.Contains(out, strings.Repeat("x", 80)) {
		t.Error("long title should be printed in full")
	}
}

func TestShowMessages(t *testing.T) {
	withoutColor(t)

	tests := []struct {
		name   string
		fn     func()
		expect string
	}{
		{"success", func() { ShowSuccess("done") }, "SUCCESS: done"},
		{"warning", func() { ShowWarning("careful") }, "WARNING: careful"},
		{"info", func() { ShowInfo("note") }, "INFO: note"},
		{"key value", func() { PrintKeyValue("Server", "ws") }, "Server:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.fn)
			if !strings.Contains(out, tt.expect) {
				t.Errorf("expected %q in %q", tt.expect, out)
			}
		})
	}
}

func TestShowError(t *testing.T) {
	withoutColor(t)

	t.Run("plain error gets a tip", func(t *testing.T) {
		out := captureOutput(t, func() { ShowError(errors.New("mssql: Login failed for user 'x'")) })
		if !strings.Contains(out, "ERROR:") {
			t.Error("missing error label")
		}
		if !strings.Contains(out, "TIP:") {
			t.Error("expected a tip for a login failure")
		}
	})

	t.Run("app error keeps its own suggestions", func(t *testing.T) {
		err := apperrors.ConfigError("engine server is required", "engine.server")
		out := captureOutput(t, func() { ShowError(err) })
		if !strings.Contains(out, "engine server is required") {
			t.Error("missing message")
		}
		if strings.Contains(out, "TIP:") {
			t.Error("did not expect a generic tip")
		}
	})
}

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Login failed for user", "Check the username and password"},
		{"dial tcp: connection refused", "Verify the serverless endpoint"},
		{"lookup ws: no such host", "Verify the serverless endpoint"},
		{"open x: permission denied", "output directories"},
		{"Invalid object name 'x'", "cannot see"},
		{"something else", ""},
	}

	for _, tt := range tests {
		got := getSuggestion(tt.message)
		if tt.want == "" {
			if got != "" {
				t.Errorf("getSuggestion(%q) = %q, want empty", tt.message, got)
			}
			continue
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("getSuggestion(%q) = %q, want it to contain %q", tt.message, got, tt.want)
		}
	}
}
