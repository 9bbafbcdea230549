package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all settings
func SetDefaults(v *viper.Viper) {
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("firehose_name", "scholarstream-openalex")

	v.SetDefault("openalex_base_url", "https://api.openalex.org")
	v.SetDefault("openalex_email", "")

	v.SetDefault("batch_size", 50)
	v.SetDefault("sleep_seconds", 2.0)

	v.SetDefault("source", "openalex")

	v.SetDefault("warehouse_db", "scholarstream.db")
}

// BindEnvVars binds settings to the environment variable names the
// original deployment used
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("aws_region", "AWS_REGION")
	v.BindEnv("firehose_name", "FIREHOSE_NAME")

	v.BindEnv("openalex_base_url", "OPENALEX_BASE_URL")
	v.BindEnv("openalex_email", "OPENALEX_EMAIL")

	v.BindEnv("batch_size", "PRODUCER_BATCH_SIZE")
	v.BindEnv("sleep_seconds", "PRODUCER_SLEEP_SECONDS")

	v.BindEnv("source", "SOURCE_TAG")

	v.BindEnv("warehouse_db", "WAREHOUSE_DB")
}
