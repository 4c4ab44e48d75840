// Package environment reads runtime environment configuration.
package environment

import (
	"os"
)

var (
	posthogAPIKeyDefault = "REPL_POSTHOG_API_KEY" // #nosec G101 -- build-time placeholder replaced in release builds.
	appVersionDefault    = "REPL_VERSION"
)

const (
	posthogAPIKeyEnvVar     = "POSTHOG_API_KEY"
	telemetryDisabledEnvVar = "BUILDER_TELEMETRY_DISABLED"
	testModeEnvVar          = "BUILDER_TEST"
)

func PosthogAPIKey() string {
	key, present := os.LookupEnv(posthogAPIKeyEnvVar)
	if present {
		return key
	}

	return posthogAPIKeyDefault
}

// TelemetryDisabled reports whether the user opted out of telemetry.
func TelemetryDisabled() bool {
	value, present := os.LookupEnv(telemetryDisabledEnvVar)
	return present && value != "" && value != "0" && value != "false"
}

// IsTestMode is set by the test suites so user-facing strings stay stable.
func IsTestMode() bool {
	_, present := os.LookupEnv(testModeEnvVar)
	return present
}

func AppVersion() string {
	return appVersionDefault
}

func HelpURL() string {
	return "REPL_HELP_URL"
}
