package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// ChainTransaction is the subset of a confirmed Solana transaction needed
// to decide whether it credited a given account.
type ChainTransaction struct {
	Signature     string     `json:"signature"`
	Slot          uint64     `json:"slot"`
	BlockTime     *time.Time `json:"block_time,omitempty"`
	Failed        bool       `json:"failed"`
	FailureReason string     `json:"failure_reason,omitempty"`
	AccountKeys   []string   `json:"account_keys"`
	PreBalances   []uint64   `json:"pre_balances"`
	PostBalances  []uint64   `json:"post_balances"`
}

// AccountIndex returns the position of address in the account list, or -1.
func (t *ChainTransaction) AccountIndex(address string) int {
	for i, key := range t.AccountKeys {
		if key == address {
			return i
		}
	}
	return -1
}

// BalanceDelta returns post minus pre balance, in lamports, at index i.
// Missing balance entries count as zero.
func (t *ChainTransaction) BalanceDelta(i int) int64 {
	var pre, post uint64
	if i >= 0 && i < len(t.PreBalances) {
		pre = t.PreBalances[i]
	}
	if i >= 0 && i < len(t.PostBalances) {
		post = t.PostBalances[i]
	}
	return int64(post) - int64(pre)
}

// LamportsToSOL converts a lamport amount to SOL.
func LamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -9)
}
