package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"rowsetstats/internal/common"
	"rowsetstats/internal/extract"
	"rowsetstats/pkg/errors"
	"rowsetstats/pkg/models"
)

// EnvPrefix prefixes environment overrides, e.g. ROWSETSTATS_ENGINE_SERVER
const EnvPrefix = "ROWSETSTATS"

func GetConfigPath() string {
	if configFile := os.Getenv(EnvPrefix + "_CONFIG"); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rowsetstats")
}

func GetConfigFile() string {
	if configFile := os.Getenv(EnvPrefix + "_CONFIG"); configFile != "" {
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// SetDefaults registers default values on v. Every key gets one so that environment
// overrides are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.server", "")
	v.SetDefault("engine.database", "")
	v.SetDefault("engine.username", "")
	v.SetDefault("engine.password", "")
	v.SetDefault("engine.application_client_id", "")
	v.SetDefault("engine.port", 1433)
	v.SetDefault("engine.auth_mode", "interactive")
	v.SetDefault("engine.timeout", 30*time.Second)
	v.SetDefault("output.create_root", "openrowset_stats")
	v.SetDefault("output.drop_root", "openrowset_stats")
	v.SetDefault("extraction.mode", string(extract.ModeShallow))
	v.SetDefault("filter.schemas", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// NewViper returns a viper instance reading configFile (or the default location) with
// ROWSETSTATS_* environment overrides. A missing file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = GetConfigFile()
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
			return v, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read config file").
			WithContext("path", configFile)
	}

	return v, nil
}

// Load decodes the configuration held by v
func Load(v *viper.Viper) (*models.Config, error) {
	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode configuration")
	}

	if err := DecryptConfigPasswords(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to decrypt engine password").
			WithContext("field", "engine.password").
			WithSuggestions("Set ROWSETSTATS_ENCRYPTION_KEY to the key the password was encrypted with")
	}

	cfg.Output.CreateRoot = common.ExpandHome(cfg.Output.CreateRoot)
	cfg.Output.DropRoot = common.ExpandHome(cfg.Output.DropRoot)

	return &cfg, nil
}

// Validate checks the fields every flow needs. Credentials are checked when connecting.
func Validate(cfg *models.Config) error {
	if cfg.Engine.Server == "" {
		return errors.MissingConfig("engine server is required", "engine.server")
	}
	if cfg.Engine.Database == "" {
		return errors.MissingConfig("engine database is required", "engine.database")
	}
	switch cfg.Engine.AuthMode {
	case "interactive":
		if cfg.Engine.ApplicationClientID == "" {
			return errors.MissingConfig("engine application client id is required for interactive authentication", "engine.application_client_id")
		}
	case "sql", "default":
	default:
		return errors.ConfigError(fmt.Sprintf("unknown auth mode %q", cfg.Engine.AuthMode), "engine.auth_mode")
	}
	if cfg.Output.CreateRoot == "" {
		return errors.MissingConfig("create output root is required", "output.create_root")
	}
	if cfg.Output.DropRoot == "" {
		return errors.MissingConfig("drop output root is required", "output.drop_root")
	}
	if _, err := extract.ParseMode(cfg.Extraction.Mode); err != nil {
		return errors.ConfigError(err.Error(), "extraction.mode")
	}
	return nil
}

// SaveTo writes config to configFile, creating its directory. A password is stored encrypted.
func SaveTo(configFile string, config *models.Config) error {
	stored := *config
	if err := EncryptConfigPasswords(&stored); err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}
	config = &stored

	if err := os.MkdirAll(filepath.Dir(configFile), common.DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func ExistsAt(configFile string) bool {
	_, err := os.Stat(configFile)
	return err == nil
}
