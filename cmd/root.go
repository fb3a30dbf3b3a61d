package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rowsetstats/internal/config"
	"rowsetstats/internal/engine"
	"rowsetstats/internal/extract"
	"rowsetstats/internal/generator"
	"rowsetstats/internal/observability"
	"rowsetstats/internal/security"
	"rowsetstats/internal/ui"
	"rowsetstats/internal/writer"
	"rowsetstats/pkg/errors"
	"rowsetstats/pkg/models"
)

var (
	cfgFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "rowsetstats",
		Short: "Generate statistics scripts for OPENROWSET views",
		Long: `rowsetstats finds the views of a Synapse serverless SQL database that read from
OPENROWSET, asks the engine which columns each one produces, and writes a script that
creates statistics on every column plus a matching script that drops them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// newConnector builds the engine connector for a loaded configuration
	newConnector = engineConnector

	// newCredentialManager opens the password store
	newCredentialManager = security.NewCredentialManager
)

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.SetOutput(os.Stderr)
		ui.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.rowsetstats/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// runtime is what the engine-facing commands share
type runtime struct {
	config *models.Config
	logger *zap.Logger
}

// loadConfig reads the config file and environment, with persistent flags on top
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to bind flag")
	}
	if err := v.BindPFlag("log.format", flags.Lookup("log-format")); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to bind flag")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// loadRuntime loads and validates the configuration and builds the logger
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, errors.ConfigError(err.Error(), "log")
	}

	if err := resolvePassword(cfg, logger); err != nil {
		return nil, err
	}

	return &runtime{config: cfg, logger: logger}, nil
}

func newLogger(cfg *models.Config, out io.Writer) (*zap.Logger, error) {
	return observability.NewLogger(observability.LoggerConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  out,
		Service: "rowsetstats",
		Version: Version,
	})
}

// resolvePassword fills an empty SQL login password from the credential store
func resolvePassword(cfg *models.Config, logger *zap.Logger) error {
	if cfg.Engine.AuthMode != engine.AuthSQL || cfg.Engine.Password != "" || cfg.Engine.Username == "" {
		return nil
	}

	cm, err := newCredentialManager()
	if err != nil {
		return err
	}
	password, err := cm.GetPassword(cfg.Engine.Server, cfg.Engine.Username)
	if err != nil {
		return err
	}
	logger.Debug("Password loaded from credential store", zap.Bool("keyring", cm.UsesKeyring()))
	cfg.Engine.Password = password
	return nil
}

func engineConnector(cfg *models.Config, logger *zap.Logger) generator.Connector {
	engineCfg := engine.Config{
		Server:              cfg.Engine.Server,
		Port:                cfg.Engine.Port,
		Database:            cfg.Engine.Database,
		AuthMode:            cfg.Engine.AuthMode,
		Username:            cfg.Engine.Username,
		Password:            cfg.Engine.Password,
		ApplicationClientID: cfg.Engine.ApplicationClientID,
		Timeout:             cfg.Engine.Timeout,
	}

	return generator.ConnectorFunc(func(ctx context.Context) (generator.Catalog, error) {
		svc := engine.NewService(engineCfg, logger)
		if err := svc.Connect(ctx); err != nil {
			return nil, err
		}
		return svc, nil
	})
}

func newGenerator(rt *runtime, schemas []string, dryRun bool, out io.Writer) (*generator.Generator, error) {
	mode, err := extract.ParseMode(rt.config.Extraction.Mode)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), "extraction.mode")
	}

	return generator.New(generator.Options{
		Connector: newConnector(rt.config, rt.logger),
		Extractor: extract.New(mode),
		Writer:    writer.New(rt.config.Output.CreateRoot, rt.config.Output.DropRoot),
		Logger:    rt.logger,
		Schemas:   schemas,
		DryRun:    dryRun,
		Out:       out,
	}), nil
}
