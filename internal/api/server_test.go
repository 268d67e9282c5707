package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savings-gateway/internal/aggregator"
	"savings-gateway/internal/config"
	"savings-gateway/internal/contracts"
	"savings-gateway/internal/fault"
	"savings-gateway/internal/models"
	"savings-gateway/internal/orchestrator"
)

var testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")

type fakeCaller struct {
	mu          sync.Mutex
	accountErr  error
	reads       map[string][]interface{}
	writes      int
	confirmErrs []error
	nonce       uint64
}

func (f *fakeCaller) Account() (common.Address, error) {
	if f.accountErr != nil {
		return common.Address{}, f.accountErr
	}
	return testAccount, nil
}

func (f *fakeCaller) Read(_ context.Context, contract *contracts.Contract, function string, _ ...interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, ok := f.reads[contract.Name+"."+function]
	if !ok {
		return nil, fault.New(fault.RPC, "no stub for %s.%s", contract.Name, function)
	}
	return out, nil
}

func (f *fakeCaller) Write(_ context.Context, contract *contracts.Contract, _ string, _ ...interface{}) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.nonce++
	to := contract.Address
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce, To: &to, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func (f *fakeCaller) WaitForConfirmation(_ context.Context, tx *types.Transaction, _ time.Duration) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.confirmErrs) > 0 {
		err := f.confirmErrs[0]
		f.confirmErrs = f.confirmErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func stubSnapshot(caller *fakeCaller) {
	caller.reads["asset.decimals"] = []interface{}{uint8(6)}
	caller.reads["vault.decimals"] = []interface{}{uint8(6)}
	caller.reads["asset.symbol"] = []interface{}{"IDRX"}
	caller.reads["asset.balanceOf"] = []interface{}{big.NewInt(100_000_000)}
	caller.reads["vault.balanceOf"] = []interface{}{big.NewInt(50_000_000)}
	caller.reads["vault.sharePrice"] = []interface{}{new(big.Int).Set(models.SharePriceBase)}
	caller.reads["savings.earned"] = []interface{}{big.NewInt(0)}
	caller.reads["savings.getActiveGoals"] = []interface{}{[]struct {
		GoalId            *big.Int
		GoalType          uint8
		TargetAmount      *big.Int
		TotalSaved        *big.Int
		TargetDate        *big.Int
		MonthlyCommitment *big.Int
		StartDate         *big.Int
		IsActive          bool
		IsCompleted       bool
		IsPaused          bool
		CustomName        string
	}{}}
	caller.reads["savings.getCompletedGoals"] = caller.reads["savings.getActiveGoals"]
	caller.reads["savings.userStats"] = []interface{}{struct {
		TotalDeposited     *big.Int
		TotalWithdrawn     *big.Int
		StreakMonths       *big.Int
		LastDepositTime    *big.Int
		ProfitShareClaimed *big.Int
	}{big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0)}}
	caller.reads["savings.getTVL"] = []interface{}{big.NewInt(0)}
	caller.reads["savings.getTotalUsers"] = []interface{}{big.NewInt(0)}
	caller.reads["faucet.claimAmount"] = []interface{}{big.NewInt(1_000_000)}
	caller.reads["faucet.walletLimit"] = []interface{}{big.NewInt(10_000_000)}
	caller.reads["faucet.totalClaimed"] = []interface{}{big.NewInt(0)}
}

func setupServer(t *testing.T) (http.Handler, *fakeCaller) {
	t.Helper()
	caller := &fakeCaller{reads: map[string][]interface{}{}}
	stubSnapshot(caller)

	reg, err := contracts.NewRegistry(config.ContractsConfig{
		Vault:       common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Asset:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Savings:     common.HexToAddress("0x4444444444444444444444444444444444444444"),
		RewardToken: common.HexToAddress("0x5555555555555555555555555555555555555555"),
		Faucet:      common.HexToAddress("0x6666666666666666666666666666666666666666"),
	})
	require.NoError(t, err)

	logger := zerolog.New(nil)
	agg := aggregator.New(caller, reg, 0, 0, logger)
	orch := orchestrator.New(caller, agg, nil, time.Minute, logger)
	actions := orchestrator.NewActions(reg, caller)
	server := NewServer(orch, actions, agg, 5*time.Second, logger)
	return server.Router(), caller
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Kind
}

func TestHealthz(t *testing.T) {
	handler, _ := setupServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPortfolio(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/portfolio/"+testAccount.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Account     string `json:"account"`
		AssetSymbol string `json:"asset_symbol"`
		Stale       bool   `json:"stale"`
		Balances    struct {
			AssetBalance string `json:"asset_balance"`
		} `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, testAccount.Hex(), body.Account)
	assert.Equal(t, "IDRX", body.AssetSymbol)
	assert.Equal(t, "100", body.Balances.AssetBalance)
	assert.False(t, body.Stale)
}

func TestPortfolio_InvalidAddress(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/portfolio/nonsense", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(fault.Validation), errorKind(t, rec))
}

func TestPortfolio_PartialRefreshIsStale(t *testing.T) {
	handler, caller := setupServer(t)
	caller.mu.Lock()
	delete(caller.reads, "savings.getTVL")
	caller.mu.Unlock()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/portfolio/"+testAccount.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stale  bool              `json:"stale"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Stale)
	assert.Contains(t, body.Errors, "tvl")
}

func TestVaultDeposit(t *testing.T) {
	handler, caller := setupServer(t)
	caller.reads["asset.allowance"] = []interface{}{big.NewInt(0)}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/vault/deposit", map[string]string{"amount": "25.5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Kind     string   `json:"kind"`
		TxHashes []string `json:"tx_hashes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "vault_deposit", body.Kind)
	// Approve plus deposit.
	assert.Len(t, body.TxHashes, 2)
}

func TestVaultDeposit_InsufficientBalance(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/vault/deposit", map[string]string{"amount": "1000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(fault.InsufficientBalance), errorKind(t, rec))
}

func TestVaultDeposit_MalformedAmount(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/vault/deposit", map[string]string{"amount": "12,5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(fault.Validation), errorKind(t, rec))
}

func TestCreateGoal_BelowMinimum(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/goals", map[string]interface{}{
		"goal_type":          0,
		"target_amount":      "5",
		"monthly_commitment": "1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(fault.Validation), errorKind(t, rec))
}

func TestCreateGoal(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/goals", map[string]interface{}{
		"goal_type":          2,
		"target_amount":      "600",
		"monthly_commitment": "50",
		"custom_name":        "Qurban fund",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Kind     string   `json:"kind"`
		TxHashes []string `json:"tx_hashes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "create_goal", body.Kind)
	assert.Len(t, body.TxHashes, 1)
}

func TestClaimProfit_NothingEarned(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/profit/claim", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(fault.Validation), errorKind(t, rec))
}

func TestGoalDeposit_InvalidID(t *testing.T) {
	handler, _ := setupServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/goals/abc/deposit", map[string]string{"amount": "10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(fault.Validation), errorKind(t, rec))
}

func TestWriteWithoutWallet(t *testing.T) {
	handler, caller := setupServer(t)
	caller.accountErr = fault.New(fault.NoWalletConnected, "no signing key configured")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/faucet/claim", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(fault.NoWalletConnected), errorKind(t, rec))
}

func TestConfirmationTimeoutMapsToAccepted(t *testing.T) {
	handler, caller := setupServer(t)
	caller.reads["asset.allowance"] = []interface{}{big.NewInt(10_000_000_000)}
	caller.confirmErrs = []error{fault.New(fault.ConfirmationTimeout, "no receipt within timeout")}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/vault/deposit", map[string]string{"amount": "5"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, string(fault.ConfirmationTimeout), errorKind(t, rec))
}

func TestRevertedTransactionMapsToUnprocessable(t *testing.T) {
	handler, caller := setupServer(t)
	caller.reads["asset.allowance"] = []interface{}{big.NewInt(10_000_000_000)}
	caller.confirmErrs = []error{fault.New(fault.TransactionReverted, "execution reverted")}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/vault/deposit", map[string]string{"amount": "5"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(fault.TransactionReverted), errorKind(t, rec))
}

func TestTransactions(t *testing.T) {
	handler, caller := setupServer(t)
	caller.reads["asset.allowance"] = []interface{}{big.NewInt(10_000_000_000)}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/vault/deposit", map[string]string{"amount": "5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Transactions []models.PendingTransaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, models.ActionVaultDeposit, body.Transactions[0].Kind)
	assert.Equal(t, models.TxConfirmed, body.Transactions[0].Status)
}
