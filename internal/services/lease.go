package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/teamroom-api/internal/database"
)

// Lease is a named, expiring lock row. Only its current holder can renew it before
// it expires; afterwards any instance may take it over.
type Lease struct {
	db     *database.DB
	name   string
	holder string
	ttl    time.Duration
}

func NewLease(db *database.DB, name, holder string, ttl time.Duration) *Lease {
	return &Lease{db: db, name: name, holder: holder, ttl: ttl}
}

func (l *Lease) Holder() string {
	return l.holder
}

// Acquire takes or renews the lease and reports whether this holder owns it.
func (l *Lease) Acquire(ctx context.Context, now time.Time) (bool, error) {
	tag, err := l.db.Pool.Exec(ctx, `
		INSERT INTO sweeper_leases (name, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE sweeper_leases.expires_at < $4 OR sweeper_leases.holder = EXCLUDED.holder
	`, l.name, l.holder, now.Add(l.ttl), now)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.name, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release gives the lease up early. Releasing a lease held by someone else is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	_, err := l.db.Pool.Exec(ctx, `DELETE FROM sweeper_leases WHERE name = $1 AND holder = $2`, l.name, l.holder)
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.name, err)
	}
	return nil
}
