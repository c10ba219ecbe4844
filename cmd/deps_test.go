package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpper(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"ADS", "SF_ACCOUNT"}, upper([]string{"ads", "Sf_Account"}))
	assert.Empty(t, upper(nil))
}
