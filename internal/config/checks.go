package config

import (
	"fmt"

	"github.com/alx-travel/alx-travel-app/internal/auth"
)

const (
	minSecretKeyLength      = 50
	minSecretKeyUniqueChars = 5
)

// Warning is a deployment check result.
type Warning struct {
	ID      string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.ID, w.Message)
}

// DeployWarnings reports settings that are acceptable in development but
// unsafe in production. An empty result means the configuration is deployable.
func DeployWarnings(cfg Config) []Warning {
	var warnings []Warning

	if cfg.Debug {
		warnings = append(warnings, Warning{
			ID:      "security.W001",
			Message: "DEBUG is enabled; turn it off in production",
		})
	}

	if weakSecretKey(cfg.SecretKey) {
		warnings = append(warnings, Warning{
			ID: "security.W002",
			Message: fmt.Sprintf("SECRET_KEY has fewer than %d characters or fewer than %d unique characters",
				minSecretKeyLength, minSecretKeyUniqueChars),
		})
	}

	if len(cfg.AllowedHosts) == 0 {
		warnings = append(warnings, Warning{
			ID:      "security.W003",
			Message: "ALLOWED_HOSTS is empty; requests are only accepted for local hosts in DEBUG mode",
		})
	}

	if cfg.CORSAllowAllOrigins {
		warnings = append(warnings, Warning{
			ID:      "cors.W001",
			Message: "CORS_ALLOW_ALL_ORIGINS is enabled; restrict CORS_ALLOWED_ORIGINS in production",
		})
	}

	if cfg.DefaultPermission == auth.AllowAny {
		warnings = append(warnings, Warning{
			ID:      "api.W001",
			Message: "DEFAULT_PERMISSION is allow_any; write endpoints accept anonymous requests",
		})
	}

	return warnings
}

func weakSecretKey(key string) bool {
	if len(key) < minSecretKeyLength {
		return true
	}
	unique := make(map[rune]struct{})
	for _, r := range key {
		unique[r] = struct{}{}
	}
	return len(unique) < minSecretKeyUniqueChars
}
