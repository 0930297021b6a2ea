package postgres

import (
	"context"
	"errors"
	"fmt"

	"donation-gateway/internal/core/ports"
)

var errLedgerMissing = errors.New("donations table missing, migrations not applied")

// NewHealthCheck pings PostgreSQL and confirms the ledger schema is in
// place, so a fresh database without migrations reports unhealthy.
func NewHealthCheck(pool Pool) ports.DependencyCheck {
	return ports.DependencyCheck{
		Dependency: "postgresql",
		Check: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			var present bool
			if err := pool.QueryRow(ctx, `SELECT to_regclass('donations') IS NOT NULL`).Scan(&present); err != nil {
				return fmt.Errorf("check ledger schema: %w", err)
			}
			if !present {
				return errLedgerMissing
			}
			return nil
		},
	}
}
