package config

import (
	"os"
	"strings"
)

// DeploymentMode represents the context the tool runs in
type DeploymentMode string

const (
	// ModeDevelopment is a source checkout with a .env file and local databases
	ModeDevelopment DeploymentMode = "development"

	// ModePackaged is an installed binary. Secrets come from the environment,
	// the keychain, the config file or an interactive prompt.
	ModePackaged DeploymentMode = "packaged"

	// ModeCI is a pipeline run: environment variables only, no prompts
	ModeCI DeploymentMode = "ci"
)

// DetectMode determines the deployment context based on environment
func DetectMode() DeploymentMode {
	if mode := os.Getenv("SMELLTRACKER_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "development", "dev":
			return ModeDevelopment
		case "packaged", "production", "prod":
			return ModePackaged
		case "ci":
			return ModeCI
		}
	}

	if isCI() {
		return ModeCI
	}
	for _, marker := range []string{".env", "go.mod"} {
		if _, err := os.Stat(marker); err == nil {
			return ModeDevelopment
		}
	}
	return ModePackaged
}

func isCI() bool {
	for _, envVar := range []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	} {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

func (m DeploymentMode) String() string {
	return string(m)
}

// AllowsDevelopmentDefaults returns true if mode allows .env defaults
func (m DeploymentMode) AllowsDevelopmentDefaults() bool {
	return m == ModeDevelopment
}

// RequiresSecureCredentials returns true if mode rejects default passwords
func (m DeploymentMode) RequiresSecureCredentials() bool {
	return m == ModePackaged || m == ModeCI
}

// AllowsInteractivePrompts returns true if secrets may be prompted for
func (m DeploymentMode) AllowsInteractivePrompts() bool {
	return m == ModePackaged
}

// Description returns a human-readable description of the mode
func (m DeploymentMode) Description() string {
	switch m {
	case ModeDevelopment:
		return "Local development"
	case ModePackaged:
		return "Installed binary"
	case ModeCI:
		return "CI/CD pipeline"
	default:
		return "Unknown mode"
	}
}
