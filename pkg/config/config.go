package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Config holds the parameters for one analysis invocation
type Config struct {
	// AttackerID is the node id of the interception attacker
	AttackerID int `yaml:"attacker_id" validate:"required,min=1"`
	// RootID is the node id of the routing root (sink)
	RootID int `yaml:"root_id" validate:"required,min=1"`
	// WindowSeconds is the time window size for routing-path grouping
	WindowSeconds int `yaml:"window_seconds" validate:"min=1"`
	// PathSeparator delimits node ids in serialized routing paths
	PathSeparator string `yaml:"path_separator" validate:"required,len=1"`
	// SendersFile optionally lists sender node ids, one per line.
	// When empty, senders default to all observed nodes except root and attacker.
	SendersFile string `yaml:"senders_file"`
	// OutputDir receives the per-run result tables
	OutputDir string `yaml:"output_dir" validate:"required"`
	// EndTimestampMS optionally overrides the run end timestamp
	EndTimestampMS *int64 `yaml:"end_timestamp_ms"`
	// PostgresDSN enables the optional results sink when non-empty
	PostgresDSN string `yaml:"postgres_dsn"`
	// LogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
	LogLevel string `yaml:"log_level"`
}

// Default returns a config with the standard analysis defaults applied
func Default() Config {
	return Config{
		WindowSeconds: 600,
		PathSeparator: ">",
		OutputDir:     "data",
		LogLevel:      "INFO",
	}
}

// Load reads and validates a YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config against its struct tags and cross-field rules
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.AttackerID == c.RootID {
		return fmt.Errorf("attacker_id and root_id must differ, both are %d", c.AttackerID)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "len":
			return fmt.Errorf("%s: must be exactly %s characters", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
