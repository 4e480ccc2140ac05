package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// EventPublisher publishes claim events to a message broker.
type EventPublisher interface {
	PublishClaimCommitted(ctx context.Context, claim *domain.ClaimRecord) error
	PublishClaimReleased(ctx context.Context, claim *domain.ClaimRecord, reason string) error
}

// EventSubscriber subscribes to claim events from a message broker.
type EventSubscriber interface {
	SubscribeClaimCommitted(ctx context.Context, handler func(ctx context.Context, event *domain.ClaimEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// MintRequest asks the external backend to mint a claimed NFT.
type MintRequest struct {
	MetadataID string `json:"metadata_id"`
	Recipient  string `json:"recipient"`
}

// MintReceipt is the backend's answer to a mint request.
type MintReceipt struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Minter triggers the downstream blockchain mint.
type Minter interface {
	Mint(ctx context.Context, req MintRequest) (*MintReceipt, error)
}
