package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rowsetstats/internal/extract"
	"rowsetstats/pkg/errors"
)

var (
	extractDefinitionFile string
	extractMode           string
	extractRaw            bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the OPENROWSET clause of a view definition",
	Long: `Find the OPENROWSET clause in a view definition read from --definition-file or stdin and
print it with single quotes doubled, ready to embed in a statistics script. No connection is made.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractDefinitionFile, "definition-file", "f", "", "File holding the view definition (default stdin)")
	extractCmd.Flags().StringVarP(&extractMode, "mode", "m", "", "Extraction mode: shallow or balanced (default from config)")
	extractCmd.Flags().BoolVar(&extractRaw, "raw", false, "Print the clause without escaping quotes")
}

func runExtract(cmd *cobra.Command, args []string) error {
	modeName := extractMode
	if modeName == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		modeName = cfg.Extraction.Mode
	}

	mode, err := extract.ParseMode(modeName)
	if err != nil {
		return errors.ConfigError(err.Error(), "extraction.mode")
	}

	var source string
	if extractDefinitionFile != "" {
		source, err = readSourceFile(extractDefinitionFile)
		if err != nil {
			return err
		}
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.FilesystemError("Failed to read definition from stdin", "-", err)
		}
		source = string(data)
	}

	extractor := extract.New(mode)
	if extractRaw {
		clause, ok := extractor.Extract(source)
		if !ok {
			return errors.ExtractionMiss("input").WithContext("mode", string(mode))
		}
		fmt.Fprintln(cmd.OutOrStdout(), clause)
		return nil
	}

	clause, err := extractor.ExtractEscaped("input", source)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), clause)
	return nil
}
