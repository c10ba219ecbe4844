package bigquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2/google"
)

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Config{ProjectID: "p", Dataset: "snowflake_test"}.IsValid())
	assert.False(t, Config{ProjectID: "p"}.IsValid())
	assert.False(t, Config{Dataset: "snowflake_test"}.IsValid())
}

func TestConfig_UsesApplicationDefaultCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{name: "nothing configured", config: Config{ProjectID: "p"}, want: true},
		{name: "file", config: Config{CredentialsFilePath: "/tmp/key.json"}, want: false},
		{name: "json", config: Config{CredentialsJSON: "{}"}, want: false},
		{name: "raw credentials", config: Config{Credentials: &google.Credentials{}}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.config.UsesApplicationDefaultCredentials())
			wantOptions := 1
			if !tt.want {
				wantOptions = 2
			}
			assert.Len(t, ClientOptions(&tt.config), wantOptions)
		})
	}
}
