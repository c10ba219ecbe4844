package gcs

import (
	"net/url"
	"path"

	"google.golang.org/api/option"
)

type Config struct {
	ProjectID          string `yaml:"project_id"`
	BucketName         string `yaml:"bucket" validate:"required"`
	ServiceAccountFile string `yaml:"service_account_file"`
	ServiceAccountJSON string `yaml:"service_account_json"`
}

func (c Config) ClientOptions() []option.ClientOption {
	switch {
	case c.ServiceAccountFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.ServiceAccountFile)}
	case c.ServiceAccountJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.ServiceAccountJSON))}
	}

	return nil
}

// URI returns the gs:// location of an object in the configured bucket.
func (c Config) URI(object string) string {
	uri := url.URL{
		Scheme: "gs",
		Host:   c.BucketName,
		Path:   path.Join("/", object),
	}
	return uri.String()
}
