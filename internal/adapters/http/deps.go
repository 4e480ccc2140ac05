package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoquest/internal/core/usecases"
)

// Pinger is a backend that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Claims   *usecases.ClaimService
	Metadata *usecases.MetadataService
	NATS     *nats.Conn
	DB       Pinger
	Cache    Pinger
	// AdminAPIKey guards the administrative routes. Empty disables them.
	AdminAPIKey string
}
