package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosthogAPIKey(t *testing.T) {
	t.Run("environment variable set", func(t *testing.T) {
		t.Setenv("POSTHOG_API_KEY", "test_posthog_api_key")
		assert.Equal(t, "test_posthog_api_key", PosthogAPIKey())
	})

	t.Run("environment variable not set", func(t *testing.T) {
		assert.Equal(t, "REPL_POSTHOG_API_KEY", posthogAPIKeyDefault)
	})
}

func TestTelemetryDisabled(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "empty", value: "", expected: false},
		{name: "zero", value: "0", expected: false},
		{name: "false", value: "false", expected: false},
		{name: "one", value: "1", expected: true},
		{name: "true", value: "true", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BUILDER_TELEMETRY_DISABLED", tt.value)
			assert.Equal(t, tt.expected, TelemetryDisabled())
		})
	}
}

func TestIsTestMode(t *testing.T) {
	t.Setenv("BUILDER_TEST", "true")
	assert.True(t, IsTestMode())
}

func TestAppVersion(t *testing.T) {
	assert.Equal(t, "REPL_VERSION", AppVersion())
}

func TestHelpURL(t *testing.T) {
	assert.Equal(t, "REPL_HELP_URL", HelpURL())
}
