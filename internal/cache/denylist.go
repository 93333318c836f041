package cache

import (
	"context"
	"fmt"
	"time"
)

const revokedPrefix = "quotebuilder:revoked:"

// Denylist records revoked token ids until the token would have expired anyway.
type Denylist struct {
	store Store
}

func NewDenylist(store Store) *Denylist {
	return &Denylist{store: store}
}

// Revoke marks jti as revoked for ttl. A non-positive ttl means the token has
// already expired and nothing is stored.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := d.store.Set(ctx, revokedPrefix+jti, []byte("1"), ttl); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, found, err := d.store.Get(ctx, revokedPrefix+jti)
	if err != nil {
		return false, fmt.Errorf("check token %s: %w", jti, err)
	}
	return found, nil
}
