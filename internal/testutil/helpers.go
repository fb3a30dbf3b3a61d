package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"rowsetstats/internal/common"
	"rowsetstats/pkg/models"
)

// TestHelper provides common test utilities
type TestHelper struct {
	t *testing.T
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// WriteFile writes content to a file in the given directory
func (h *TestHelper) WriteFile(dir, filename, content string) string {
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		h.t.Fatalf("Failed to create directories: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), common.FilePermissionSecure); err != nil {
		h.t.Fatalf("Failed to write file %s: %v", path, err)
	}

	return path
}

// ReadFile returns the contents of path or fails the test
func (h *TestHelper) ReadFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// ObservedLogger returns a logger that records entries at debug level and above
func (h *TestHelper) ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// OpenrowsetView builds a view whose definition reads path in format through OPENROWSET
func OpenrowsetView(schema, name, path, format string) models.View {
	return models.View{
		Schema: schema,
		Name:   name,
		Definition: fmt.Sprintf("CREATE VIEW [%s].[%s] AS\nSELECT *\nFROM OPENROWSET(BULK '%s', FORMAT='%s') AS [r]",
			schema, name, path, format),
	}
}

// PlainView builds a view that does not touch external data
func PlainView(schema, name string) models.View {
	return models.View{
		Schema:     schema,
		Name:       name,
		Definition: fmt.Sprintf("CREATE VIEW [%s].[%s] AS SELECT 1 AS [one]", schema, name),
	}
}

// EscapedClause returns the escaped OPENROWSET clause OpenrowsetView produces for path and format
func EscapedClause(path, format string) string {
	return fmt.Sprintf("OPENROWSET(BULK ''%s'', FORMAT=''%s'')", path, format)
}
