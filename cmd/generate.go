package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rowsetstats/internal/ui"
)

var (
	generateDryRun  bool
	generateSchemas []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write statistics scripts for every OPENROWSET view",
	Long: `Connect to the configured database, list its views, and for every view whose
definition reads from OPENROWSET write a create script and a drop script:

  <create_root>/<schema.view>/create_openrowset_stats.txt
  <drop_root>/<schema.view>/drop_openrowset_stats.txt

A view that cannot be processed is reported and skipped. The command fails only when the
engine cannot be reached or its views cannot be listed.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVarP(&generateDryRun, "dry-run", "d", false, "Print the scripts instead of writing files")
	generateCmd.Flags().StringSliceVarP(&generateSchemas, "schema", "s", nil, "Only process views in these schemas (repeatable)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	schemas := generateSchemas
	if len(schemas) == 0 {
		schemas = rt.config.Filter.Schemas
	}

	gen, err := newGenerator(rt, schemas, generateDryRun, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rt.logger.Info("Starting run",
		zap.String("server", rt.config.Engine.Server),
		zap.String("database", rt.config.Engine.Database),
		zap.Bool("dry_run", generateDryRun))

	report, err := gen.Run(ctx)
	if report != nil {
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderSummary(report, ui.SupportsColor()))
	}
	return err
}
