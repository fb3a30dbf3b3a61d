package models

import "time"

type Config struct {
	Engine     Engine     `yaml:"engine" mapstructure:"engine"`
	Output     Output     `yaml:"output" mapstructure:"output"`
	Extraction Extraction `yaml:"extraction" mapstructure:"extraction"`
	Filter     Filter     `yaml:"filter" mapstructure:"filter"`
	Log        Log        `yaml:"log" mapstructure:"log"`
}

// Engine describes the serverless SQL endpoint
type Engine struct {
	Server              string        `yaml:"server" mapstructure:"server"`
	Port                int           `yaml:"port,omitempty" mapstructure:"port"`
	Database            string        `yaml:"database" mapstructure:"database"`
	AuthMode            string        `yaml:"auth_mode" mapstructure:"auth_mode"` // "sql", "interactive", "default"
	Username            string        `yaml:"username,omitempty" mapstructure:"username"`
	Password            string        `yaml:"password,omitempty" mapstructure:"password"`
	ApplicationClientID string        `yaml:"application_client_id,omitempty" mapstructure:"application_client_id"`
	Timeout             time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Output holds the roots the create and drop scripts are written under
type Output struct {
	CreateRoot string `yaml:"create_root" mapstructure:"create_root"`
	DropRoot   string `yaml:"drop_root" mapstructure:"drop_root"`
}

type Extraction struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // "shallow" or "balanced"
}

// Filter narrows view enumeration. Empty means every view.
type Filter struct {
	Schemas []string `yaml:"schemas,omitempty" mapstructure:"schemas"`
}

type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}
