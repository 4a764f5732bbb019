// Package config loads the consolidator configuration from an optional YAML file and
// CONSOLIDATOR_* environment variables.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/askiada/go-consolidator/pkg/consolidator"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CONSOLIDATOR"

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full process configuration.
type Config struct {
	consolidator.Config `mapstructure:",squash" yaml:",inline"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Config:    consolidator.DefaultConfig(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// New returns a viper instance preloaded with the defaults and bound to the environment.
// Callers such as the CLI bind their flags on it before calling Decode.
func New() *viper.Viper {
	def := Default()

	v := viper.New()
	v.SetDefault("root", def.Root)
	v.SetDefault("exclude", def.Exclude)
	v.SetDefault("extensions", def.Extensions)
	v.SetDefault("threshold", def.Threshold)
	v.SetDefault("concurrency", def.Concurrency)
	v.SetDefault("parse_timeout", def.ParseTimeout)
	v.SetDefault("max_file_bytes", def.MaxFileBytes)
	v.SetDefault("annotations_file", def.AnnotationsFile)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads path (skipped when empty) on top of the defaults and the environment, then
// validates the result.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", path)
		}
	}

	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v. The default taxonomy is used
// when v does not set one.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := Config{}
	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}
	if !v.IsSet("taxonomy") {
		cfg.Taxonomy = Default().Taxonomy
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and the taxonomy table.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				fields = append(fields, fieldErr.Namespace()+" ("+fieldErr.Tag()+")")
			}

			return errors.Wrapf(ErrInvalidConfig, "%s", strings.Join(fields, ", "))
		}

		return errors.Wrap(err, "unable to validate config")
	}

	err = c.Taxonomy.Validate()
	if err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%v", err)
	}

	return nil
}
