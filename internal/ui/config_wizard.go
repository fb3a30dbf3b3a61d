package ui

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"rowsetstats/pkg/models"
)

// AskFunc matches survey.Ask
type AskFunc func(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error

// AskOneFunc matches survey.AskOne
type AskOneFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// ErrWizardCancelled is returned when the operator aborts or declines to save
var ErrWizardCancelled = fmt.Errorf("configuration cancelled")

// ConfigWizard provides an interactive configuration setup
type ConfigWizard struct {
	currentStep int
	totalSteps  int
	defaults    models.Config
	ask         AskFunc
	askOne      AskOneFunc
}

// WizardResult is the collected configuration. Password is kept apart so it
// can go to the credential store instead of the config file.
type WizardResult struct {
	Config   *models.Config
	Password string
}

type engineAnswers struct {
	Server   string `survey:"server"`
	Database string `survey:"database"`
	AuthMode string `survey:"auth_mode"`
}

type loginAnswers struct {
	Username            string `survey:"username"`
	Password            string `survey:"password"`
	ApplicationClientID string `survey:"application_client_id"`
}

type outputAnswers struct {
	CreateRoot string `survey:"create_root"`
	DropRoot   string `survey:"drop_root"`
	Mode       string `survey:"mode"`
}

// NewConfigWizard creates a wizard prefilled from defaults
func NewConfigWizard(defaults models.Config) *ConfigWizard {
	return &ConfigWizard{
		currentStep: 1,
		totalSteps:  4,
		defaults:    defaults,
		ask:         survey.Ask,
		askOne:      survey.AskOne,
	}
}

// WithPrompter replaces the survey prompts, mainly for tests
func (w *ConfigWizard) WithPrompter(ask AskFunc, askOne AskOneFunc) *ConfigWizard {
	w.ask = ask
	w.askOne = askOne
	return w
}

// Run executes the configuration wizard
func (w *ConfigWizard) Run() (*WizardResult, error) {
	ShowHeader("rowsetstats - Configuration Setup")

	config := w.defaults
	result := &WizardResult{Config: &config}

	steps := []func(*WizardResult) error{
		w.configureEngineStep,
		w.configureLoginStep,
		w.configureOutputStep,
		w.reviewConfiguration,
	}

	for _, step := range steps {
		if err := step(result); err != nil {
			if err == terminal.InterruptErr {
				return nil, ErrWizardCancelled
			}
			return nil, err
		}
	}

	return result, nil
}

func (w *ConfigWizard) configureEngineStep(result *WizardResult) error {
	w.showProgress("Serverless SQL Endpoint")

	authDefault := w.defaults.Engine.AuthMode
	if authDefault == "" {
		authDefault = "interactive"
	}

	questions := []*survey.Question{
		{
			Name: "server",
			Prompt: &survey.Input{
				Message: "Server:",
				Default: w.defaults.Engine.Server,
				Help:    "The serverless SQL endpoint, e.g. myworkspace-ondemand.sql.azuresynapse.net",
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database:",
				Default: w.defaults.Engine.Database,
				Help:    "Database holding the OPENROWSET views",
			},
			Validate: survey.Required,
		},
		{
			Name: "auth_mode",
			Prompt: &survey.Select{
				Message: "Authentication:",
				Options: []string{"interactive", "sql", "default"},
				Default: authDefault,
				Help:    "interactive opens a browser sign-in, sql uses a login and password, default uses the Azure credential chain",
			},
		},
	}

	var answers engineAnswers
	if err := w.ask(questions, &answers); err != nil {
		return err
	}

	result.Config.Engine.Server = strings.TrimSpace(answers.Server)
	result.Config.Engine.Database = strings.TrimSpace(answers.Database)
	result.Config.Engine.AuthMode = answers.AuthMode

	w.currentStep++
	return nil
}

func (w *ConfigWizard) configureLoginStep(result *WizardResult) error {
	w.showProgress("Login")

	var questions []*survey.Question
	switch result.Config.Engine.AuthMode {
	case "sql":
		questions = []*survey.Question{
			{
				Name:     "username",
				Prompt:   &survey.Input{Message: "Username:", Default: w.defaults.Engine.Username},
				Validate: survey.Required,
			},
			{
				Name: "password",
				Prompt: &survey.Password{
					Message: "Password:",
					Help:    "Stored in the system keyring, not in the config file",
				},
				Validate: survey.Required,
			},
		}
	case "interactive":
		questions = []*survey.Question{
			{
				Name: "username",
				Prompt: &survey.Input{
					Message: "Username (optional):",
					Default: w.defaults.Engine.Username,
					Help:    "Prefills the sign-in prompt",
				},
			},
			{
				Name: "application_client_id",
				Prompt: &survey.Input{
					Message: "Application client ID:",
					Default: w.defaults.Engine.ApplicationClientID,
					Help:    "Public client application registered in Entra ID, required for browser sign-in",
				},
				Validate: survey.Required,
			},
		}
	default:
		w.currentStep++
		return nil
	}

	var answers loginAnswers
	if err := w.ask(questions, &answers); err != nil {
		return err
	}

	result.Config.Engine.Username = strings.TrimSpace(answers.Username)
	result.Config.Engine.ApplicationClientID = strings.TrimSpace(answers.ApplicationClientID)
	result.Config.Engine.Password = ""
	result.Password = answers.Password

	w.currentStep++
	return nil
}

func (w *ConfigWizard) configureOutputStep(result *WizardResult) error {
	w.showProgress("Output")

	modeDefault := w.defaults.Extraction.Mode
	if modeDefault == "" {
		modeDefault = "shallow"
	}

	questions := []*survey.Question{
		{
			Name: "create_root",
			Prompt: &survey.Input{
				Message: "Create scripts directory:",
				Default: orDefault(w.defaults.Output.CreateRoot, "openrowset_stats"),
			},
			Validate: survey.Required,
		},
		{
			Name: "drop_root",
			Prompt: &survey.Input{
				Message: "Drop scripts directory:",
				Default: orDefault(w.defaults.Output.DropRoot, "openrowset_stats"),
			},
			Validate: survey.Required,
		},
		{
			Name: "mode",
			Prompt: &survey.Select{
				Message: "Clause extraction:",
				Options: []string{"shallow", "balanced"},
				Default: modeDefault,
				Help:    "shallow stops at the first closing parenthesis, balanced follows nesting and quotes",
			},
		},
	}

	var answers outputAnswers
	if err := w.ask(questions, &answers); err != nil {
		return err
	}

	result.Config.Output.CreateRoot = answers.CreateRoot
	result.Config.Output.DropRoot = answers.DropRoot
	result.Config.Extraction.Mode = answers.Mode

	w.currentStep++
	return nil
}

func (w *ConfigWizard) reviewConfiguration(result *WizardResult) error {
	w.showProgress("Review Configuration")

	config := result.Config
	fmt.Fprintln(output, "\n"+ColorInfo("Configuration Summary:"))
	fmt.Fprintln(output, strings.Repeat("-", 50))
	PrintKeyValue("Server", config.Engine.Server)
	PrintKeyValue("Database", config.Engine.Database)
	PrintKeyValue("Authentication", config.Engine.AuthMode)
	if config.Engine.Username != "" {
		PrintKeyValue("Username", config.Engine.Username)
	}
	PrintKeyValue("Create scripts", config.Output.CreateRoot)
	PrintKeyValue("Drop scripts", config.Output.DropRoot)
	PrintKeyValue("Extraction", config.Extraction.Mode)
	fmt.Fprintln(output, strings.Repeat("-", 50))

	confirm := false
	prompt := &survey.Confirm{
		Message: "Save this configuration?",
		Default: true,
	}

	if err := w.askOne(prompt, &confirm); err != nil {
		return err
	}

	if !confirm {
		return ErrWizardCancelled
	}

	return nil
}

func (w *ConfigWizard) showProgress(step string) {
	fmt.Fprintf(output, "\n%s [Step %d/%d] %s\n\n",
		ColorProgress(">"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
