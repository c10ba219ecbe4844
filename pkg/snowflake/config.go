package snowflake

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/snowflakedb/gosnowflake"
)

type Config struct {
	Account   string `envconfig:"SNOWFLAKE_ACCOUNT" yaml:"account"`
	Username  string `envconfig:"SNOWFLAKE_USERNAME" yaml:"username"`
	Password  string `envconfig:"SNOWFLAKE_PASSWORD" yaml:"password"`
	Region    string `envconfig:"SNOWFLAKE_REGION" yaml:"region"`
	Role      string `envconfig:"SNOWFLAKE_ROLE" yaml:"role"`
	Warehouse string `envconfig:"SNOWFLAKE_WAREHOUSE" yaml:"warehouse"`
	Database  string `envconfig:"SNOWFLAKE_DATABASE" yaml:"database"`
	Schema    string `envconfig:"SNOWFLAKE_SCHEMA" yaml:"schema"`
}

func DefaultConfig() Config {
	return Config{
		Region:    "us-east-1",
		Role:      "ACCOUNTADMIN",
		Warehouse: "PROD_OTHER_WH",
		Database:  "PROD",
		Schema:    "MSTR_DATAMART",
	}
}

func (c Config) DSN() (string, error) {
	snowflakeConfig := gosnowflake.Config{
		Account:   c.Account,
		User:      c.Username,
		Password:  c.Password,
		Region:    c.Region,
		Role:      c.Role,
		Warehouse: c.Warehouse,
		Database:  c.Database,
		Schema:    c.Schema,
		Params:    map[string]*string{"TIMEZONE": strPtr("UTC")},
	}

	return gosnowflake.DSN(&snowflakeConfig)
}

func (c Config) IsValid() bool {
	return c.Account != "" && c.Username != "" && c.Password != ""
}

// OverrideFromEnv replaces fields with the SNOWFLAKE_* variables that are set.
func (c *Config) OverrideFromEnv() error {
	return envconfig.Process("", c)
}

func strPtr(s string) *string {
	return &s
}
