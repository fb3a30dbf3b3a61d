package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"rowsetstats/internal/testutil"
)

// TestCLICommands runs the offline commands against a built binary
func TestCLICommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping e2e test in short mode")
	}

	helper := testutil.NewTestHelper(t)
	binPath := buildCLI(t)
	tempDir := t.TempDir()

	view := testutil.OpenrowsetView("dbo", "sales", "raw/sales/*.parquet", "PARQUET")
	definition := helper.WriteFile(tempDir, "sales.sql", view.Definition)

	tests := []struct {
		name           string
		args           []string
		stdin          string
		expectedOutput []string
		expectedError  bool
	}{
		{
			name: "help",
			args: []string{"--help"},
			expectedOutput: []string{
				"Available Commands:",
				"generate",
				"view",
				"extract",
				"setup",
			},
		},
		{
			name:           "version",
			args:           []string{"version"},
			expectedOutput: []string{"rowsetstats version"},
		},
		{
			name:           "extract from file",
			args:           []string{"extract", "--definition-file", definition},
			expectedOutput: []string{testutil.EscapedClause("raw/sales/*.parquet", "PARQUET")},
		},
		{
			name:           "extract from stdin",
			args:           []string{"extract", "--mode", "balanced"},
			stdin:          view.Definition,
			expectedOutput: []string{testutil.EscapedClause("raw/sales/*.parquet", "PARQUET")},
		},
		{
			name:          "extract miss",
			args:          []string{"extract"},
			stdin:         "SELECT 1",
			expectedError: true,
		},
		{
			name:          "invalid command",
			args:          []string{"invalid"},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := run(t, binPath, tempDir, tt.stdin, tt.args...)

			if tt.expectedError && err == nil {
				t.Error("Expected error but command succeeded")
			}
			if !tt.expectedError && err != nil {
				t.Errorf("Command failed: %v\nStderr: %s", err, stderr)
			}

			for _, expected := range tt.expectedOutput {
				if !strings.Contains(stdout, expected) {
					t.Errorf("Expected output to contain '%s', got:\n%s", expected, stdout)
				}
			}
		})
	}
}

// TestErrorScenarios checks that aborting failures exit non-zero with a readable message
func TestErrorScenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping e2e test in short mode")
	}

	helper := testutil.NewTestHelper(t)
	binPath := buildCLI(t)

	scenarios := []struct {
		name          string
		config        string
		args          []string
		expectedError string
	}{
		{
			name:          "missing server",
			config:        "engine:\n  database: lake\n",
			args:          []string{"generate"},
			expectedError: "engine server is required",
		},
		{
			name:          "invalid yaml",
			config:        "engine: [unclosed",
			args:          []string{"generate"},
			expectedError: "failed to read config file",
		},
		{
			name: "unreachable engine",
			config: "engine:\n  server: 127.0.0.1\n  port: 1\n  database: lake\n  auth_mode: sql\n" +
				"  username: loader\n  password: x\n  timeout: 5s\n",
			args:          []string{"generate"},
			expectedError: "RSS1001",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			tempDir := t.TempDir()
			configPath := helper.WriteFile(tempDir, "config.yaml", scenario.config)

			args := append(scenario.args, "--config", configPath)
			_, stderr, err := run(t, binPath, tempDir, "", args...)
			if err == nil {
				t.Error("Expected command to fail")
			}

			if !strings.Contains(strings.ToLower(stderr), strings.ToLower(scenario.expectedError)) {
				t.Errorf("Expected error containing '%s', got: %s", scenario.expectedError, stderr)
			}
		})
	}
}

func run(t *testing.T, binPath, dir, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "ROWSETSTATS_CONFIG="+filepath.Join(dir, "missing.yaml"))
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func buildCLI(t *testing.T) string {
	t.Helper()

	binPath := filepath.Join(t.TempDir(), "rowsetstats")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}

	cmd := exec.Command("go", "build", "-o", binPath, "../../main.go")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to build CLI: %v\nStderr: %s", err, stderr.String())
	}

	return binPath
}
