package cache

import (
	"context"
	"errors"
	"time"

	"medeasy/pos/internal/pos"
)

// Snapshot is the persisted form of one checkout session's cart.
type Snapshot struct {
	SessionID string         `json:"session_id"`
	OwnerID   string         `json:"owner_id"`
	Lines     []pos.CartLine `json:"lines"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type CartCache interface {
	Get(ctx context.Context, sessionID string) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
