package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                    "8480",
		JWTSecret:               "test-secret",
		Env:                     "test",
		UploadMaxSizeMB:         5,
		AutosaveIntervalSeconds: 30,
	}
}

func TestValidateRequiredFields(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())

	c = validConfig()
	c.Port = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.JWTSecret = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.UploadMaxSizeMB = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.AutosaveIntervalSeconds = -1
	assert.Error(t, c.Validate())
}

func TestValidateProductionHardening(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, c.Validate(), "default secret must be rejected in production")

	c = validConfig()
	c.Env = "production"
	c.JWTSecret = "0123456789abcdef0123456789abcdef"
	c.DBPassword = "something-strong"
	assert.Error(t, c.Validate(), "empty admin allow-list must be rejected in production")

	c.AdminEmails = "coach@example.com"
	assert.NoError(t, c.Validate())
}

func TestAdminEmailList(t *testing.T) {
	c := &Config{AdminEmails: " Coach@Example.com, ,other@example.com "}
	assert.Equal(t, []string{"coach@example.com", "other@example.com"}, c.AdminEmailList())

	assert.Nil(t, (&Config{}).AdminEmailList())
}
