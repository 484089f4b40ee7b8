// Package config loads rails-new defaults from an optional YAML file and
// RAILS_NEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultRubyVersion = "3.3.4"
	DefaultEngine      = "docker"

	envPrefix = "RAILS_NEW"
)

// Config holds the user-configurable defaults.
type Config struct {
	RubyVersion  string `mapstructure:"ruby_version" validate:"required,version"`
	RailsVersion string `mapstructure:"rails_version" validate:"omitempty,version"`
	Engine       string `mapstructure:"engine" validate:"required,oneof=docker podman"`
}

// versionPattern accepts release and prerelease versions such as 3.3.4,
// 7.2 or 8.0.0.rc1.
var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,3}([.-]?[A-Za-z0-9]+)*$`)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	if err := validate.RegisterValidation("version", func(fl validator.FieldLevel) bool {
		return versionPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rails-new", "config.yaml")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rails-new", "config.yaml")
}

// Load reads configuration. An explicit path must exist; the default path is
// optional. The result is not validated: callers apply their overrides and
// then call Validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("ruby_version", DefaultRubyVersion)
	v.SetDefault("rails_version", "")
	v.SetDefault("engine", DefaultEngine)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration, e.g. after flags have overridden it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validation failed: %w", err)
	}

	var messages []string
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}

	if len(messages) == 1 {
		return fmt.Errorf("validation error: %s", messages[0])
	}
	return fmt.Errorf("validation errors:\n  - %s", strings.Join(messages, "\n  - "))
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "version":
		return fmt.Sprintf("field '%s' must be a version like 3.3.4, got %q", field, e.Value())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, e.Tag())
	}
}
