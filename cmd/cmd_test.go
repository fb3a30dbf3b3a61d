package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rowsetstats/internal/generator"
	"rowsetstats/internal/testutil"
	"rowsetstats/pkg/models"
)

// resetFlags restores every flag to its default so rootCmd can be executed repeatedly
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeWithInput(t *testing.T, in io.Reader, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeWithInput(t, strings.NewReader(""), args...)
}

// writeConfig writes a valid config file and returns its path and the output root
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "out")

	content := fmt.Sprintf(`engine:
  server: ws-ondemand.sql.azuresynapse.net
  database: lake
  auth_mode: interactive
  application_client_id: 00000000-0000-0000-0000-000000000001
output:
  create_root: %s
  drop_root: %s
%s`, filepath.Join(root, "create"), filepath.Join(root, "drop"), extra)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	// keep a developer's own config out of the way
	t.Setenv("ROWSETSTATS_CONFIG", path)
	return path, root
}

// stubConnector routes engine connections to connector for the duration of the test
func stubConnector(t *testing.T, connector *testutil.MockConnector) {
	t.Helper()
	original := newConnector
	newConnector = func(cfg *models.Config, logger *zap.Logger) generator.Connector {
		return connector
	}
	t.Cleanup(func() { newConnector = original })
}
