package endpoints

import (
	"github.com/jackzampolin/leaf/internal/api"
	"github.com/jackzampolin/leaf/internal/mirrors"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	Ready  func() bool
	Events *mirrors.Counter
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{Ready: cfg.Ready, Events: cfg.Events},

		// Mirror endpoints
		&ListMirrorsEndpoint{},
		&GetMirrorEndpoint{},

		// Session endpoints
		&CreateSessionEndpoint{},
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},
		&PercentEndpoint{},
		&ByteEndpoint{},
		&NextEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
