package instance

import "github.com/angelmondragon/storefront-backend/pkg/env"

// GetID returns the process instance identifier used in startup logs.
func GetID() string {
	if id := env.First("STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME"); id != "" {
		return id
	}
	return "local"
}
