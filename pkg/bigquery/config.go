package bigquery

import (
	"golang.org/x/oauth2/google"
)

type Config struct {
	ProjectID           string              `envconfig:"BIGQUERY_PROJECT" yaml:"project_id"`
	CredentialsFilePath string              `envconfig:"BIGQUERY_CREDENTIALS_FILE" yaml:"service_account_file"`
	CredentialsJSON     string              `envconfig:"BIGQUERY_CREDENTIALS_JSON" yaml:"service_account_json"`
	Credentials         *google.Credentials `ignored:"true" yaml:"-"`
	Location            string              `envconfig:"BIGQUERY_LOCATION" yaml:"location"`
	Dataset             string              `envconfig:"BIGQUERY_DATASET" yaml:"dataset"`
}

func (c Config) IsValid() bool {
	return c.ProjectID != "" && c.Dataset != ""
}

// UsesApplicationDefaultCredentials is true when no explicit credentials are configured,
// e.g. when GOOGLE_APPLICATION_CREDENTIALS points at a key file.
func (c Config) UsesApplicationDefaultCredentials() bool {
	return c.CredentialsJSON == "" && c.CredentialsFilePath == "" && c.Credentials == nil
}
