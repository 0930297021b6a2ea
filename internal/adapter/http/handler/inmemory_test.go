package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- In-Memory Recipient Repo ---

type inMemoryRecipientRepo struct {
	mu         sync.RWMutex
	recipients map[uuid.UUID]*domain.Recipient
}

func newInMemoryRecipientRepo() *inMemoryRecipientRepo {
	return &inMemoryRecipientRepo{recipients: make(map[uuid.UUID]*domain.Recipient)}
}

func (r *inMemoryRecipientRepo) Create(_ context.Context, rc *domain.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients[rc.ID] = rc
	return nil
}

func (r *inMemoryRecipientRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recipients[id], nil
}

func (r *inMemoryRecipientRepo) GetByPayoutAddress(_ context.Context, address string) (*domain.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rc := range r.recipients {
		if rc.PayoutAddress == address {
			return rc, nil
		}
	}
	return nil, nil
}

// --- In-Memory Donation Repo ---

// inMemoryDonationRepo enforces network_tx_id uniqueness under one lock,
// standing in for the table's unique constraint.
type inMemoryDonationRepo struct {
	mu        sync.Mutex
	donations []domain.Donation
	byTxID    map[string]struct{}
}

func newInMemoryDonationRepo() *inMemoryDonationRepo {
	return &inMemoryDonationRepo{byTxID: make(map[string]struct{})}
}

func (r *inMemoryDonationRepo) InsertIfAbsent(_ context.Context, d *domain.Donation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTxID[d.NetworkTxID]; exists {
		return false, nil
	}
	d.ID = uuid.New()
	d.ProcessedAt = time.Now().UTC()
	r.byTxID[d.NetworkTxID] = struct{}{}
	r.donations = append(r.donations, *d)
	return true, nil
}

func (r *inMemoryDonationRepo) Query(_ context.Context, q ports.DonationQuery) ([]domain.Donation, error) {
	q = q.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Donation
	for _, d := range r.donations {
		if d.RecipientID != q.RecipientID {
			continue
		}
		if q.Since != nil && d.ProcessedAt.Before(*q.Since) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Order == ports.OrderAscending {
			return out[i].ProcessedAt.Before(out[j].ProcessedAt)
		}
		return out[i].ProcessedAt.After(out[j].ProcessedAt)
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *inMemoryDonationRepo) Stats(_ context.Context, recipientID uuid.UUID) (*ports.DonationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &ports.DonationStats{Total: decimal.Zero}
	for _, d := range r.donations {
		if d.RecipientID == recipientID {
			stats.Count++
			stats.Total = stats.Total.Add(d.Amount)
		}
	}
	return stats, nil
}

func (r *inMemoryDonationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.donations)
}

// --- Static chain ---

// staticChain serves canned confirmed transactions by signature.
type staticChain struct {
	mu  sync.RWMutex
	txs map[string]*domain.ChainTransaction
}

func (c *staticChain) add(tx *domain.ChainTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs[tx.Signature] = tx
}

func (c *staticChain) GetTransaction(_ context.Context, signature string) (*domain.ChainTransaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.txs[signature], nil
}
