package postgres

import (
	"context"
	"errors"
	"fmt"

	"donation-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const recipientColumns = `id, handle, display_name, payout_address, created_at`

// RecipientRepo implements ports.RecipientRepository.
type RecipientRepo struct {
	pool Pool
}

// NewRecipientRepo creates a new RecipientRepo.
func NewRecipientRepo(pool Pool) *RecipientRepo {
	return &RecipientRepo{pool: pool}
}

// Create inserts a new recipient. Only the admin tool calls this.
func (r *RecipientRepo) Create(ctx context.Context, rc *domain.Recipient) error {
	query := `INSERT INTO recipients (` + recipientColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, rc.ID, rc.Handle, rc.DisplayName, rc.PayoutAddress, rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

// GetByID fetches a recipient by its UUID.
func (r *RecipientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id = $1`

	rc, err := scanRecipient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get recipient by id: %w", err)
	}
	return rc, nil
}

// GetByPayoutAddress fetches the recipient whose payout account is address.
func (r *RecipientRepo) GetByPayoutAddress(ctx context.Context, address string) (*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE payout_address = $1`

	rc, err := scanRecipient(r.pool.QueryRow(ctx, query, address))
	if err != nil {
		return nil, fmt.Errorf("get recipient by payout_address: %w", err)
	}
	return rc, nil
}

// scanRecipient returns (nil, nil) when the row does not exist.
func scanRecipient(row pgx.Row) (*domain.Recipient, error) {
	rc := &domain.Recipient{}
	err := row.Scan(&rc.ID, &rc.Handle, &rc.DisplayName, &rc.PayoutAddress, &rc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rc, nil
}
