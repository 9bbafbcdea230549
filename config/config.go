// Package config holds the producer's runtime settings.
//
// Settings are resolved in precedence order: built-in defaults, then
// process environment, then explicit CLI flags applied by the command
// layer. The environment variable names match the ones the original
// deployment used, so existing .env files keep working.
package config

import (
	"github.com/spf13/viper"

	"github.com/scholarstream/scholarstream/errors"
)

// Settings is the full configuration surface of the producer.
type Settings struct {
	// AWSRegion is the region hosting the Firehose delivery stream
	AWSRegion string `mapstructure:"aws_region"`

	// FirehoseName is the delivery stream records are shipped to
	FirehoseName string `mapstructure:"firehose_name"`

	// OpenAlexBaseURL is the root of the OpenAlex REST API
	OpenAlexBaseURL string `mapstructure:"openalex_base_url"`

	// OpenAlexEmail is the mandatory contact address for polite-pool access
	OpenAlexEmail string `mapstructure:"openalex_email"`

	// BatchSize is the number of envelopes per Firehose put (1-500)
	BatchSize int `mapstructure:"batch_size"`

	// SleepSeconds is the pause between OpenAlex pages
	SleepSeconds float64 `mapstructure:"sleep_seconds"`

	// Source tags every envelope with its producer
	Source string `mapstructure:"source"`

	// WarehouseDB is the path of the local warehouse database used by
	// the sql and dashboard commands
	WarehouseDB string `mapstructure:"warehouse_db"`
}

// Load reads settings from defaults overlaid by the process environment.
func Load() (*Settings, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnvVars(v)
	return LoadWithViper(v)
}

// LoadWithViper resolves settings from a caller-provided Viper instance.
func LoadWithViper(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}
	return &s, nil
}

// Validate fails fast on missing or out-of-range settings, before any
// network activity. Error messages name the offending setting.
func (s *Settings) Validate() error {
	if s.OpenAlexEmail == "" {
		return errors.NewConfigError("OPENALEX_EMAIL is required for polite use of the OpenAlex API")
	}
	if s.AWSRegion == "" {
		return errors.NewConfigError("AWS_REGION is required")
	}
	if s.FirehoseName == "" {
		return errors.NewConfigError("FIREHOSE_NAME is required")
	}
	if s.BatchSize < 1 || s.BatchSize > 500 {
		return errors.NewConfigError("batch_size must be between 1 and 500, got %d", s.BatchSize)
	}
	if s.SleepSeconds < 0 {
		return errors.NewConfigError("sleep_seconds must not be negative, got %g", s.SleepSeconds)
	}
	return nil
}
