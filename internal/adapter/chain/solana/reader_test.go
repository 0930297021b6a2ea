package solana

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"donation-gateway/config"
	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports/mocks"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// fakeNode answers JSON-RPC calls with canned results.
type fakeNode struct {
	t      *testing.T
	calls  atomic.Int32
	hold   time.Duration
	result func(method string, params []any) (any, *rpcError)
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	require.NoError(n.t, json.NewDecoder(r.Body).Decode(&req))
	n.calls.Add(1)
	if n.hold > 0 {
		time.Sleep(n.hold)
	}

	result, rerr := n.result(req.Method, req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func randomSignature(t *testing.T) string {
	t.Helper()
	var sig solanago.Signature
	_, err := rand.Read(sig[:])
	require.NoError(t, err)
	return sig.String()
}

// transferFixture builds a base64 transfer transaction payer -> recipient.
func transferFixture(t *testing.T, payer, recipient solanago.PublicKey) string {
	t.Helper()
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{system.NewTransferInstruction(100_000_000, payer, recipient).Build()},
		solanago.Hash{},
		solanago.TransactionPayer(payer),
	)
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func txResult(encoded string, metaErr any, pre, post []uint64, loaded map[string][]string) map[string]any {
	if loaded == nil {
		loaded = map[string][]string{"writable": {}, "readonly": {}}
	}
	return map[string]any{
		"slot":        uint64(250_000_000),
		"blockTime":   int64(1_700_000_000),
		"transaction": []string{encoded, "base64"},
		"version":     "legacy",
		"meta": map[string]any{
			"err":             metaErr,
			"fee":             5000,
			"preBalances":     pre,
			"postBalances":    post,
			"loadedAddresses": loaded,
		},
	}
}

func newTestReader(t *testing.T, node *fakeNode, cfg config.SolanaConfig, cache *mocks.MockChainCache) *Reader {
	t.Helper()
	node.t = t
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cache == nil {
		return NewReader(rpc.New(srv.URL), cfg, nil, zerolog.Nop())
	}
	return NewReader(rpc.New(srv.URL), cfg, cache, zerolog.Nop())
}

func TestReader_GetTransaction_Converts(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()
	encoded := transferFixture(t, payer, recipient)

	var gotOpts map[string]any
	node := &fakeNode{result: func(method string, params []any) (any, *rpcError) {
		require.Equal(t, "getTransaction", method)
		require.Len(t, params, 2)
		gotOpts, _ = params[1].(map[string]any)
		return txResult(encoded, nil,
			[]uint64{2_000_000_000, 500_000_000, 1},
			[]uint64{1_899_995_000, 600_000_000, 1}, nil), nil
	}}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)

	sig := randomSignature(t)
	tx, err := reader.GetTransaction(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, sig, tx.Signature)
	assert.Equal(t, uint64(250_000_000), tx.Slot)
	assert.False(t, tx.Failed)
	require.NotNil(t, tx.BlockTime)
	assert.Equal(t, int64(1_700_000_000), tx.BlockTime.Unix())
	require.Len(t, tx.AccountKeys, 3)
	assert.Equal(t, payer.String(), tx.AccountKeys[0])
	assert.Equal(t, recipient.String(), tx.AccountKeys[1])
	assert.Equal(t, solanago.SystemProgramID.String(), tx.AccountKeys[2])
	assert.Equal(t, int64(100_000_000), tx.BalanceDelta(tx.AccountIndex(recipient.String())))

	assert.Equal(t, "base64", gotOpts["encoding"])
	assert.Equal(t, "confirmed", gotOpts["commitment"])
	assert.EqualValues(t, 0, gotOpts["maxSupportedTransactionVersion"])
}

func TestReader_GetTransaction_AppendsLoadedAddresses(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	other := solanago.NewWallet().PublicKey()
	writable := solanago.NewWallet().PublicKey()
	readonly := solanago.NewWallet().PublicKey()
	encoded := transferFixture(t, payer, other)

	node := &fakeNode{result: func(string, []any) (any, *rpcError) {
		return txResult(encoded, nil,
			[]uint64{10, 0, 1, 5, 7},
			[]uint64{9, 0, 1, 6, 7},
			map[string][]string{
				"writable": {writable.String()},
				"readonly": {readonly.String()},
			}), nil
	}}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)

	tx, err := reader.GetTransaction(context.Background(), randomSignature(t))
	require.NoError(t, err)
	require.Len(t, tx.AccountKeys, 5)
	assert.Equal(t, writable.String(), tx.AccountKeys[3])
	assert.Equal(t, readonly.String(), tx.AccountKeys[4])
	assert.Equal(t, int64(1), tx.BalanceDelta(3))
}

func TestReader_GetTransaction_FailedExecution(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()
	encoded := transferFixture(t, payer, recipient)

	node := &fakeNode{result: func(string, []any) (any, *rpcError) {
		return txResult(encoded, map[string]any{"InstructionError": []any{0, "Custom"}},
			[]uint64{1, 1, 1}, []uint64{1, 1, 1}, nil), nil
	}}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)

	tx, err := reader.GetTransaction(context.Background(), randomSignature(t))
	require.NoError(t, err)
	assert.True(t, tx.Failed)
	assert.Contains(t, tx.FailureReason, "InstructionError")
}

func TestReader_GetTransaction_NotFound(t *testing.T) {
	node := &fakeNode{result: func(string, []any) (any, *rpcError) { return nil, nil }}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)

	tx, err := reader.GetTransaction(context.Background(), randomSignature(t))
	assert.NoError(t, err)
	assert.Nil(t, tx)
}

func TestReader_GetTransaction_RPCError(t *testing.T) {
	node := &fakeNode{result: func(string, []any) (any, *rpcError) {
		return nil, &rpcError{Code: -32005, Message: "node is behind"}
	}}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)

	tx, err := reader.GetTransaction(context.Background(), randomSignature(t))
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.Contains(t, err.Error(), "rpc getTransaction")
}

func TestReader_GetTransaction_InvalidSignature(t *testing.T) {
	node := &fakeNode{result: func(string, []any) (any, *rpcError) { return nil, nil }}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)

	_, err := reader.GetTransaction(context.Background(), "not-a-signature")
	assert.Error(t, err)
	assert.Equal(t, int32(0), node.calls.Load(), "no RPC for malformed input")
}

func TestReader_GetTransaction_CollapsesConcurrentReads(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()
	encoded := transferFixture(t, payer, recipient)

	node := &fakeNode{hold: 300 * time.Millisecond, result: func(string, []any) (any, *rpcError) {
		return txResult(encoded, nil, []uint64{2, 0, 1}, []uint64{1, 1, 1}, nil), nil
	}}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)
	sig := randomSignature(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := reader.GetTransaction(context.Background(), sig)
			assert.NoError(t, err)
			assert.NotNil(t, tx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), node.calls.Load())
}

func TestReader_GetTransaction_SharedReadSurvivesCallerCancel(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()
	encoded := transferFixture(t, payer, recipient)

	node := &fakeNode{hold: 300 * time.Millisecond, result: func(string, []any) (any, *rpcError) {
		return txResult(encoded, nil, []uint64{2, 0, 1}, []uint64{1, 1, 1}, nil), nil
	}}
	reader := newTestReader(t, node, config.SolanaConfig{}, nil)
	sig := randomSignature(t)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reader.GetTransaction(firstCtx, sig)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return node.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		tx  *domain.ChainTransaction
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		tx, err := reader.GetTransaction(context.Background(), sig)
		second <- outcome{tx, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.tx)
	assert.Equal(t, sig, got.tx.Signature)
	assert.Equal(t, int32(1), node.calls.Load())
}

func TestNewReader_DefaultTimeout(t *testing.T) {
	r := NewReader(nil, config.SolanaConfig{}, nil, zerolog.Nop())
	assert.Equal(t, defaultRequestTimeout, r.timeout)
}

func TestReader_GetTransaction_CacheHitSkipsRPC(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockChainCache(ctrl)
	node := &fakeNode{result: func(string, []any) (any, *rpcError) { return nil, nil }}
	reader := newTestReader(t, node, config.SolanaConfig{CacheTTL: time.Hour}, cache)

	sig := randomSignature(t)
	cached := &domain.ChainTransaction{Signature: sig, Slot: 7}
	cache.EXPECT().Get(gomock.Any(), sig).Return(cached, nil)

	tx, err := reader.GetTransaction(context.Background(), sig)
	require.NoError(t, err)
	assert.Same(t, cached, tx)
	assert.Equal(t, int32(0), node.calls.Load())
}

func TestReader_GetTransaction_CacheMissStoresResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockChainCache(ctrl)
	payer := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()
	encoded := transferFixture(t, payer, recipient)
	node := &fakeNode{result: func(string, []any) (any, *rpcError) {
		return txResult(encoded, nil, []uint64{2, 0, 1}, []uint64{1, 1, 1}, nil), nil
	}}
	reader := newTestReader(t, node, config.SolanaConfig{CacheTTL: time.Hour}, cache)
	sig := randomSignature(t)

	cache.EXPECT().Get(gomock.Any(), sig).Return(nil, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, tx *domain.ChainTransaction, _ time.Duration) error {
			assert.Equal(t, sig, tx.Signature)
			return nil
		})

	tx, err := reader.GetTransaction(context.Background(), sig)
	require.NoError(t, err)
	assert.NotNil(t, tx)
}

func TestReader_GetTransaction_CacheFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockChainCache(ctrl)
	node := &fakeNode{result: func(string, []any) (any, *rpcError) { return nil, nil }}
	reader := newTestReader(t, node, config.SolanaConfig{CacheTTL: time.Hour}, cache)
	sig := randomSignature(t)

	cache.EXPECT().Get(gomock.Any(), sig).Return(nil, assert.AnError)

	tx, err := reader.GetTransaction(context.Background(), sig)
	assert.NoError(t, err)
	assert.Nil(t, tx)
	assert.Equal(t, int32(1), node.calls.Load())
}

func TestNewReader_ZeroTTLDisablesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockChainCache(ctrl)

	reader := NewReader(rpc.New("http://127.0.0.1:0"), config.SolanaConfig{Commitment: "finalized"}, cache, zerolog.Nop())
	assert.Nil(t, reader.cache)
	assert.Equal(t, rpc.CommitmentFinalized, reader.commitment)
}

func TestHealthCheck_Ping(t *testing.T) {
	status := "ok"
	node := &fakeNode{result: func(method string, _ []any) (any, *rpcError) {
		require.Equal(t, "getHealth", method)
		if status != "ok" {
			return nil, &rpcError{Code: -32005, Message: "Node is behind by 42 slots"}
		}
		return status, nil
	}}
	node.t = t
	srv := httptest.NewServer(node)
	defer srv.Close()

	hc := NewHealthCheck(rpc.New(srv.URL))
	assert.Equal(t, "solana-rpc", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	status = "behind"
	assert.Error(t, hc.Ping(context.Background()))
}
