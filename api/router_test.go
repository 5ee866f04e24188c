package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rpsarena/config"
	"rpsarena/models"
	"rpsarena/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router      *gin.Engine
	accounts    *MockAccountService
	bets        *MockBetService
	matchmaking *MockMatchmakingService
	matches     *MockMatchService
	payments    *MockPaymentService
	stats       *MockStatsService
	repair      *MockRepairService
	sweeper     *MockSweeper
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewTestConfig()
	cfg.AdminToken = "admin-secret"
	cfg.PaymentWebhookSecret = "hook-secret"

	ts := &testServer{
		accounts:    &MockAccountService{},
		bets:        &MockBetService{},
		matchmaking: &MockMatchmakingService{},
		matches:     &MockMatchService{},
		payments:    &MockPaymentService{},
		stats:       &MockStatsService{},
		repair:      &MockRepairService{},
		sweeper:     &MockSweeper{},
	}
	router, err := NewRouter(cfg, Services{
		Accounts:    ts.accounts,
		Bets:        ts.bets,
		Matchmaking: ts.matchmaking,
		Matches:     ts.matches,
		Payments:    ts.payments,
		Stats:       ts.stats,
		Repair:      ts.repair,
		Sweeper:     ts.sweeper,
	})
	require.NoError(t, err)
	ts.router = router
	return ts
}

func (ts *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

var alice = map[string]string{headerUserID: "alice", headerUserName: "Alice"}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequiresUserIdentity(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/v1/account", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, decode[ErrorResponse](t, rec).Code)
}

func TestCreateBet(t *testing.T) {
	ts := newTestServer(t)
	ts.bets.On("CreateBet", mock.Anything, "alice", "Alice", int64(1000)).
		Return(&models.Bet{ID: "bet-1", CreatorID: "alice", Amount: 1000, GameFee: 10, Status: models.BetStatusWaiting}, nil)

	rec := ts.do(http.MethodPost, "/api/v1/bets", gin.H{"amount": 1000}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "bet-1", decode[map[string]any](t, rec)["betId"])
	ts.bets.AssertExpectations(t)
}

func TestCreateBet_RejectsMissingAmount(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/bets", gin.H{}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.bets.AssertNotCalled(t, "CreateBet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", service.ErrBelowMinimum, http.StatusBadRequest, codeValidation},
		{"insufficient funds", fmt.Errorf("%w: have 5, need 1010", service.ErrInsufficientFunds), http.StatusPaymentRequired, codeInsufficientFunds},
		{"not found", service.ErrBetNotFound, http.StatusNotFound, codeNotFound},
		{"conflict", service.ErrNotJoinable, http.StatusConflict, codeStateConflict},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.bets.On("JoinBet", mock.Anything, "bet-1", "alice", "Alice").Return(nil, tt.err)

			rec := ts.do(http.MethodPost, "/api/v1/bets/bet-1/join", nil, alice)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, body.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "connection reset")
			}
		})
	}
}

func TestCancelBet(t *testing.T) {
	ts := newTestServer(t)
	ts.bets.On("CancelBet", mock.Anything, "bet-1", "alice").Return(int64(1010), nil)

	rec := ts.do(http.MethodPost, "/api/v1/bets/bet-1/cancel", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1010), decode[map[string]any](t, rec)["refundAmount"])
}

func TestJoinQueue_ValidatesStakeTier(t *testing.T) {
	ts := newTestServer(t)
	gameID := "game-1"
	ts.matchmaking.On("JoinWaitingRoom", mock.Anything, "alice", "Alice", int64(500)).
		Return(&models.MatchmakingResult{GameID: &gameID, Matched: true}, nil)

	rec := ts.do(http.MethodPost, "/api/v1/matchmaking", gin.H{"stake": 500}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[models.MatchmakingResult](t, rec)
	assert.True(t, result.Matched)

	rec = ts.do(http.MethodPost, "/api/v1/matchmaking", gin.H{"stake": 750}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "stake failed staketier")
}

func TestLeaveQueue(t *testing.T) {
	ts := newTestServer(t)
	ts.matchmaking.On("LeaveWaitingRoom", mock.Anything, "alice").Return(true, nil)

	rec := ts.do(http.MethodDelete, "/api/v1/matchmaking", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["refunded"])
}

func TestSubmitChoice(t *testing.T) {
	ts := newTestServer(t)
	ts.matches.On("SubmitChoice", mock.Anything, "game-1", "alice", models.ChoicePaper).
		Return(&models.ChoiceResult{MatchID: "game-1", Status: models.ChoiceStatusWaitingForOpponent, Round: 1}, nil)

	rec := ts.do(http.MethodPost, "/api/v1/games/game-1/choice", gin.H{"choice": "Paper"}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ChoiceStatusWaitingForOpponent, decode[models.ChoiceResult](t, rec).Status)

	rec = ts.do(http.MethodPost, "/api/v1/games/game-1/choice", gin.H{"choice": "lizard"}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.matches.AssertNumberOfCalls(t, "SubmitChoice", 1)
}

func TestCancelActiveGames_DoesNotClashWithGameRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.matches.On("CancelActiveGamesForUser", mock.Anything, "alice").Return([]string{"game-1", "game-2"}, nil)

	rec := ts.do(http.MethodPost, "/api/v1/games/cancel-active", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]string](t, rec)["cancelled"], 2)
}

func TestCancelStaleGame_TooEarly(t *testing.T) {
	ts := newTestServer(t)
	ts.matches.On("CancelStaleGame", mock.Anything, "game-1", "alice").Return(nil, service.ErrMatchNotStale)

	rec := ts.do(http.MethodPost, "/api/v1/games/game-1/cancel", nil, alice)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaymentWebhook(t *testing.T) {
	ts := newTestServer(t)
	ts.payments.On("HandleWebhook", mock.Anything, "ref-1", models.PaymentStatusSuccess).
		Return(&models.CreditResult{Credited: true, NewBalance: 5000, Reference: "ref-1"}, nil)

	body := gin.H{"reference": "ref-1", "status": "success"}

	rec := ts.do(http.MethodPost, "/api/v1/payments/webhook", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/payments/webhook", body, map[string]string{headerWebhookSecret: "hook-secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.CreditResult](t, rec).Credited)

	rec = ts.do(http.MethodPost, "/api/v1/payments/webhook", gin.H{"reference": "ref-1", "status": "refunded"},
		map[string]string{headerWebhookSecret: "hook-secret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	admin := map[string]string{headerAdminToken: "admin-secret"}

	ts.repair.On("RepairStuckWagers", mock.Anything, true).Return(&models.RepairReport{DryRun: true, Items: []*models.RepairItem{}}, nil)
	ts.sweeper.On("SweepOnce", mock.Anything).Return(&models.SweepReport{Scanned: 3, Stale: 1, Cancelled: []string{"game-1"}}, nil)
	ts.accounts.On("AuditLedger", mock.Anything, "bob").Return(&models.LedgerAudit{AccountID: "bob", Consistent: true}, nil)

	rec := ts.do(http.MethodPost, "/api/v1/admin/repair", gin.H{"dryRun": true}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/admin/repair", gin.H{"dryRun": true}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.RepairReport](t, rec).DryRun)

	rec = ts.do(http.MethodPost, "/api/v1/admin/sweep", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"game-1"}, decode[models.SweepReport](t, rec).Cancelled)

	rec = ts.do(http.MethodGet, "/api/v1/admin/accounts/bob/audit", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.LedgerAudit](t, rec).Consistent)
}

func TestAccountStats(t *testing.T) {
	ts := newTestServer(t)
	ts.stats.On("GetPlayerStats", mock.Anything, "alice").
		Return(&models.PlayerStats{AccountID: "alice", GamesPlayed: 4, Wins: 3, Losses: 1, TotalWon: 3000, TotalLost: 1000}, nil)

	rec := ts.do(http.MethodGet, "/api/v1/account/stats", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(75), body["winRate"])
	assert.Equal(t, float64(2000), body["netProfit"])
}
