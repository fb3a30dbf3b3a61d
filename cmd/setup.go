package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"rowsetstats/internal/config"
	"rowsetstats/internal/ui"
	"rowsetstats/pkg/errors"
	"rowsetstats/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Long: `Interactively write the configuration file. A SQL login password goes to the
system keyring (or the encrypted credential store) rather than the file.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

var (
	// runWizard collects the configuration interactively
	runWizard = func(defaults models.Config) (*ui.WizardResult, error) {
		return ui.NewConfigWizard(defaults).Run()
	}

	// confirmOverwrite asks before replacing an existing configuration
	confirmOverwrite = func() (bool, error) {
		overwrite := false
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to update it?",
			Default: true,
		}
		err := survey.AskOne(prompt, &overwrite)
		return overwrite, err
	}
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	prev := ui.SetOutput(cmd.OutOrStdout())
	defer ui.SetOutput(prev)

	ui.ShowInfo("Setting up rowsetstats...")

	defaults, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	target := cfgFile
	if target == "" {
		target = config.GetConfigFile()
	}

	if config.ExistsAt(target) {
		overwrite, err := confirmOverwrite()
		if err != nil {
			return err
		}
		if !overwrite {
			ui.ShowInfo("Setup cancelled.")
			return nil
		}
	}

	result, err := runWizard(*defaults)
	if err == ui.ErrWizardCancelled {
		ui.ShowInfo("Setup cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := config.Validate(result.Config); err != nil {
		return err
	}
	result.Config.Engine.Password = ""

	if result.Password != "" {
		cm, err := newCredentialManager()
		if err != nil {
			return err
		}
		if err := cm.StorePassword(result.Config.Engine.Server, result.Config.Engine.Username, result.Password); err != nil {
			return err
		}
		if !cm.UsesKeyring() {
			ui.ShowWarning("System keyring unavailable, password kept in the encrypted credential store")
		}
		ui.ShowSuccess("Password stored securely.")
	}

	if err := config.SaveTo(target, result.Config); err != nil {
		return errors.FilesystemError("Failed to save configuration", target, err)
	}

	ui.ShowSuccess(fmt.Sprintf("Configuration saved to %s", target))
	return nil
}
