// Package solana reads confirmed transactions from a Solana JSON-RPC node.
package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donation-gateway/config"
	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const defaultRequestTimeout = 15 * time.Second

// RPC is the subset of *rpc.Client the reader needs.
type RPC interface {
	GetTransaction(ctx context.Context, sig solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	GetHealth(ctx context.Context) (string, error)
}

// Reader implements ports.ChainReader. Concurrent reads of one signature
// share a single RPC call, and results are kept in an optional cache.
type Reader struct {
	client     RPC
	cache      ports.ChainCache
	cacheTTL   time.Duration
	commitment rpc.CommitmentType
	timeout    time.Duration
	group      singleflight.Group
	log        zerolog.Logger
}

// NewReader creates a chain reader. cache may be nil.
func NewReader(client RPC, cfg config.SolanaConfig, cache ports.ChainCache, log zerolog.Logger) *Reader {
	commitment := rpc.CommitmentConfirmed
	if cfg.Commitment == string(rpc.CommitmentFinalized) {
		commitment = rpc.CommitmentFinalized
	}
	if cfg.CacheTTL <= 0 {
		cache = nil
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Reader{
		client:     client,
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		commitment: commitment,
		timeout:    timeout,
		log:        log,
	}
}

// GetTransaction returns the transaction with the given base58 signature,
// or nil, nil if the node has no confirmed record of it.
func (r *Reader) GetTransaction(ctx context.Context, signature string) (*domain.ChainTransaction, error) {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, signature)
		if err != nil {
			r.log.Warn().Err(err).Str("signature", signature).Msg("Chain cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	// The shared fetch outlives any single caller; r.timeout bounds it.
	ch := r.group.DoChan(signature, func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx), signature, sig)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tx, _ := res.Val.(*domain.ChainTransaction)
		return tx, nil
	}
}

func (r *Reader) fetch(ctx context.Context, signature string, sig solanago.Signature) (*domain.ChainTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	maxVersion := uint64(0)
	res, err := r.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solanago.EncodingBase64,
		Commitment:                     r.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("rpc getTransaction: %w", err)
	}

	tx, err := toChainTransaction(signature, res)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, tx, r.cacheTTL); err != nil {
			r.log.Warn().Err(err).Str("signature", signature).Msg("Chain cache write failed")
		}
	}
	return tx, nil
}

// toChainTransaction flattens an RPC result. Account keys are the static
// message keys followed by writable then read-only lookup-table addresses,
// which is the order the balance arrays use.
func toChainTransaction(signature string, res *rpc.GetTransactionResult) (*domain.ChainTransaction, error) {
	if res.Transaction == nil || res.Meta == nil {
		return nil, errors.New("rpc getTransaction: incomplete response")
	}
	parsed, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if parsed == nil {
		return nil, errors.New("decode transaction: empty payload")
	}

	loaded := res.Meta.LoadedAddresses
	keys := make([]string, 0, len(parsed.Message.AccountKeys)+len(loaded.Writable)+len(loaded.ReadOnly))
	for _, k := range parsed.Message.AccountKeys {
		keys = append(keys, k.String())
	}
	for _, k := range loaded.Writable {
		keys = append(keys, k.String())
	}
	for _, k := range loaded.ReadOnly {
		keys = append(keys, k.String())
	}

	tx := &domain.ChainTransaction{
		Signature:    signature,
		Slot:         res.Slot,
		AccountKeys:  keys,
		PreBalances:  res.Meta.PreBalances,
		PostBalances: res.Meta.PostBalances,
	}
	if res.BlockTime != nil {
		bt := res.BlockTime.Time().UTC()
		tx.BlockTime = &bt
	}
	if res.Meta.Err != nil {
		tx.Failed = true
		tx.FailureReason = fmt.Sprint(res.Meta.Err)
	}
	return tx, nil
}

// NewHealthCheck pings the RPC node with getHealth, which fails while the
// node lags behind the cluster.
func NewHealthCheck(client RPC) ports.DependencyCheck {
	return ports.DependencyCheck{
		Dependency: "solana-rpc",
		Check: func(ctx context.Context) error {
			status, err := client.GetHealth(ctx)
			if err != nil {
				return err
			}
			if status != rpc.HealthOk {
				return fmt.Errorf("node unhealthy: %s", status)
			}
			return nil
		},
	}
}
