package domain

// TransferEventType is the only feed event type that can carry a donation.
const TransferEventType = "TRANSFER"

// TransferEvent is one enhanced-transaction event pushed by the feed provider.
type TransferEvent struct {
	Signature       string           `json:"signature"`
	Type            string           `json:"type"`
	FeePayer        string           `json:"feePayer"`
	Timestamp       int64            `json:"timestamp"`
	Description     string           `json:"description"`
	AccountData     []AccountData    `json:"accountData"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
}

// AccountData is a per-account balance change within a feed event.
type AccountData struct {
	Account             string `json:"account"`
	NativeBalanceChange int64  `json:"nativeBalanceChange"`
}

// NativeTransfer is a SOL movement within a feed event, in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          uint64 `json:"amount"`
}

// IsTransfer reports whether the event is a transfer.
func (e *TransferEvent) IsTransfer() bool {
	return e.Type == TransferEventType
}

// CandidateAccounts lists the accounts that may be a donation recipient,
// credited accounts only: transfer targets first, then accounts whose native
// balance rose. The fee payer is never a candidate.
func (e *TransferEvent) CandidateAccounts() []string {
	seen := map[string]struct{}{e.FeePayer: {}}
	var out []string
	add := func(a string) {
		if a == "" {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	for _, t := range e.NativeTransfers {
		add(t.ToUserAccount)
	}
	for _, a := range e.AccountData {
		if a.NativeBalanceChange > 0 {
			add(a.Account)
		}
	}
	return out
}

// CreditedLamports sums native transfers into account. When no transfer
// names the account, it falls back to the account's positive balance change.
func (e *TransferEvent) CreditedLamports(account string) int64 {
	var total uint64
	for _, t := range e.NativeTransfers {
		if t.ToUserAccount == account {
			total += t.Amount
		}
	}
	if total > 0 {
		return int64(total)
	}
	for _, a := range e.AccountData {
		if a.Account == account && a.NativeBalanceChange > 0 {
			return a.NativeBalanceChange
		}
	}
	return 0
}
