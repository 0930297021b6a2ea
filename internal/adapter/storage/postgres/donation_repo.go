package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const donationColumns = `id, recipient_id, donor_address, network_tx_id, amount, message, source, block_time, processed_at`

// DonationRepo implements ports.DonationRepository. The table has no
// UPDATE or DELETE path; the unique constraint on network_tx_id is the only
// coordination between concurrent writers.
type DonationRepo struct {
	pool Pool
}

// NewDonationRepo creates a new DonationRepo.
func NewDonationRepo(pool Pool) *DonationRepo {
	return &DonationRepo{pool: pool}
}

// InsertIfAbsent inserts d unless its network_tx_id is already recorded.
func (r *DonationRepo) InsertIfAbsent(ctx context.Context, d *domain.Donation) (bool, error) {
	query := `INSERT INTO donations (recipient_id, donor_address, network_tx_id, amount, message, source, block_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (network_tx_id) DO NOTHING
		RETURNING id, processed_at`

	var (
		id          uuid.UUID
		processedAt time.Time
	)
	err := r.pool.QueryRow(ctx, query,
		d.RecipientID, d.DonorAddress, d.NetworkTxID, d.Amount,
		d.Message, d.Source, d.BlockTime,
	).Scan(&id, &processedAt)
	if err != nil {
		// DO NOTHING returns no row on conflict.
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert donation: %w", err)
	}

	d.ID = id
	d.ProcessedAt = processedAt
	return true, nil
}

// Query lists a recipient's donations with processed_at >= q.Since.
func (r *DonationRepo) Query(ctx context.Context, q ports.DonationQuery) ([]domain.Donation, error) {
	q = q.Normalize()

	conditions := []string{"recipient_id = $1"}
	args := []any{q.RecipientID}
	if q.Since != nil {
		args = append(args, *q.Since)
		conditions = append(conditions, fmt.Sprintf("processed_at >= $%d", len(args)))
	}
	args = append(args, q.Limit)

	query := fmt.Sprintf(`SELECT %s FROM donations WHERE %s ORDER BY processed_at %s, id %s LIMIT $%d`,
		donationColumns, strings.Join(conditions, " AND "), q.Order, q.Order, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	donations := make([]domain.Donation, 0, q.Limit)
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(
			&d.ID, &d.RecipientID, &d.DonorAddress, &d.NetworkTxID, &d.Amount,
			&d.Message, &d.Source, &d.BlockTime, &d.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan donation row: %w", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donation rows: %w", err)
	}
	return donations, nil
}

// Stats returns the running count and sum of a recipient's donations.
func (r *DonationRepo) Stats(ctx context.Context, recipientID uuid.UUID) (*ports.DonationStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM donations WHERE recipient_id = $1`

	stats := &ports.DonationStats{}
	if err := r.pool.QueryRow(ctx, query, recipientID).Scan(&stats.Count, &stats.Total); err != nil {
		return nil, fmt.Errorf("donation stats: %w", err)
	}
	return stats, nil
}
