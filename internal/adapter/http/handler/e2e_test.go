package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"donation-gateway/config"
	redisStorage "donation-gateway/internal/adapter/storage/redis"
	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/core/ports"
	"donation-gateway/internal/service"
	"donation-gateway/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory repositories, a
// static chain and miniredis, exercising the real HTTP layer, middleware,
// services, broadcaster and viewer sessions end-to-end.
type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	chain      *staticChain
	donations  *inMemoryDonationRepo
	recipient  *domain.Recipient
	tokenSvc   *service.JWTTokenService
	feedSecret string
}

const (
	e2ePayout = "So11111111111111111111111111111111111111112"
	e2eSigA   = "3hizm34taS8t9UvpJg9oRCJ7EWYkuUHNCecrhuBZjG7L2RfqEqgApn2VsKS94Agj9UgBdgQT6HsaaFRUu7ZT44sU"
	e2eSigB   = "2soASZVz6NaEUZtRyCbf3hAdpPAAiecRovUSi99FFw9GJGQTbdoPFaFctNx1Nzt2FzPMLj5JjBnkXJm6CGofULNX"
	e2eSigC   = "2RF3ugPdKMojzm2TzjYTL5x8zvFuUMQcJyK3utdX5Z7hRKmcKZjRR76nznazgtcFwr1r2os67PN1CXHF6eHNass7"
)

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := zerolog.Nop()
	m := metrics.New()

	recipients := newInMemoryRecipientRepo()
	donations := newInMemoryDonationRepo()
	chain := &staticChain{txs: make(map[string]*domain.ChainTransaction)}

	recipient := &domain.Recipient{
		ID:            uuid.New(),
		Handle:        "creator",
		DisplayName:   "Creator",
		PayoutAddress: e2ePayout,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, recipients.Create(context.Background(), recipient))

	liveCfg := config.LiveConfig{
		PollInterval:     50 * time.Millisecond,
		HandshakeTimeout: time.Second,
		SettleDelay:      10 * time.Millisecond,
		DefaultDwell:     time.Second,
	}
	feedSecret := "feed-secret"

	broadcaster := redisStorage.NewBroadcaster(rdb, liveCfg.HandshakeTimeout, log)
	validator := service.NewChainValidator(chain, m, log)
	tokenSvc, err := service.NewJWTTokenService("test-jwt-secret-key-at-least-32-bytes", time.Hour, "test-issuer")
	require.NoError(t, err)

	router := SetupRouter(RouterDeps{
		DonationSvc:        service.NewDonationService(recipients, donations, validator, broadcaster, m, log),
		FeedSvc:            service.NewFeedService(recipients, donations, validator, broadcaster, true, m, log),
		FeedAuth:           service.NewFeedAuth(config.FeedConfig{Secret: feedSecret}, service.NewArgon2HashService()),
		StatsSvc:           service.NewStatsService(donations),
		TokenSvc:           tokenSvc,
		Recipients:         recipients,
		Subscriber:         broadcaster,
		Ledger:             donations,
		Live:               liveCfg,
		RateLimitStore:     redisStorage.NewRateLimitStore(rdb),
		DonationsPerMinute: 1000,
		HealthCheckers:     []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Metrics:            m,
		Logger:             log,
	})

	return &testApp{
		server:     httptest.NewServer(router),
		redis:      mr,
		chain:      chain,
		donations:  donations,
		recipient:  recipient,
		tokenSvc:   tokenSvc,
		feedSecret: feedSecret,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// credit registers a confirmed transfer of lamports from the donor to the
// recipient's payout address.
func (a *testApp) credit(sig string, lamports uint64) {
	bt := time.Now().UTC().Truncate(time.Second)
	a.chain.add(&domain.ChainTransaction{
		Signature:    sig,
		Slot:         100,
		BlockTime:    &bt,
		AccountKeys:  []string{testAddress, e2ePayout},
		PreBalances:  []uint64{10_000_000_000, 0},
		PostBalances: []uint64{10_000_000_000 - lamports - 5_000, lamports},
	})
}

func (a *testApp) submit(t *testing.T, sig, claimed string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"recipient_id":%q,"network_tx_id":%q,"claimed_amount":%q,"message":"hello","donor_address":%q}`,
		a.recipient.ID, sig, claimed, testAddress)
	resp, err := http.Post(a.server.URL+"/api/v1/donations", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func (a *testApp) authGet(t *testing.T, path string) map[string]any {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(a.recipient.ID)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Data
}

func TestE2E_ConcurrentDuplicateSubmission(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.credit(e2eSigA, 500_000_000)

	const workers = 10
	var wg sync.WaitGroup
	statuses := make(chan int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := app.submit(t, e2eSigA, "0.5")
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	counts := make(map[int]int)
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, 1, counts[http.StatusCreated])
	assert.Equal(t, workers-1, counts[http.StatusConflict])
	assert.Equal(t, 1, app.donations.count())
}

func TestE2E_StoresChainAmountAndReportsStats(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.credit(e2eSigA, 250_000_000)
	app.credit(e2eSigB, 1_000_000_000)

	resp := app.submit(t, e2eSigA, "0.2505")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.submit(t, e2eSigB, "1")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	list := app.authGet(t, "/api/v1/recipients/"+app.recipient.ID.String()+"/donations")
	assert.Equal(t, float64(2), list["count"])
	items := list["items"].([]any)
	assert.Equal(t, e2eSigB, items[0].(map[string]any)["network_tx_id"], "newest first")
	assert.Equal(t, "0.25", items[1].(map[string]any)["amount"], "stored amount comes from the chain")

	stats := app.authGet(t, "/api/v1/recipients/"+app.recipient.ID.String()+"/stats")
	assert.Equal(t, float64(2), stats["count"])
	assert.Equal(t, "1.25", stats["total"])
}

func TestE2E_RejectsMismatchedClaim(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.credit(e2eSigA, 100_000_000)

	resp := app.submit(t, e2eSigA, "0.103")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "DON_002", body["error_code"])
	assert.Equal(t, "AMOUNT_MISMATCH", body["reason"])
	assert.Equal(t, 0, app.donations.count())
}

func TestE2E_FeedAndClientRecordOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.credit(e2eSigC, 300_000_000)

	events := fmt.Sprintf(`[{"signature":%q,"type":"TRANSFER","feePayer":%q,"timestamp":%d,
		"accountData":[{"account":%q,"nativeBalanceChange":300000000}],
		"nativeTransfers":[{"fromUserAccount":%q,"toUserAccount":%q,"amount":300000000}]}]`,
		e2eSigC, testAddress, time.Now().Unix(), e2ePayout, testAddress, e2ePayout)

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/webhooks/helius", bytes.NewBufferString(events))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+app.feedSecret)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, app.donations.count())

	resp = app.submit(t, e2eSigC, "0.3")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, app.donations.count())
}

func TestE2E_WebhookRejectsWrongSecret(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/webhooks/helius", strings.NewReader("[]"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer nope")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestE2E_LiveStreamPresentsPushedDonation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	app.credit(e2eSigA, 420_000_000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		app.server.URL+"/api/v1/widget/"+app.recipient.ID.String()+"/stream?tts=false", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)

	scanner := bufio.NewScanner(stream.Body)
	next := func() (string, string) {
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				return event, strings.TrimPrefix(line, "data:")
			}
		}
		return "", ""
	}

	event, _ := next()
	require.Equal(t, "config", event)
	event, data := next()
	require.Equal(t, "status", event)
	require.Contains(t, data, `"live"`, "subscription is confirmed before the status is sent")

	resp := app.submit(t, e2eSigA, "0.42")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	event, data = next()
	assert.Equal(t, "show", event)
	assert.Contains(t, data, `"amount":"0.42"`)
	assert.Contains(t, data, `"message":"hello"`)
}
