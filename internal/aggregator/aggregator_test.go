package aggregator

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"savings-gateway/internal/config"
	"savings-gateway/internal/contracts"
	"savings-gateway/internal/fault"
	"savings-gateway/internal/models"
)

var testAccount = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

// fakeCaller answers reads from a map keyed "contract.function" and counts
// how often each key was queried.
type fakeCaller struct {
	mu     sync.Mutex
	reads  map[string][]interface{}
	counts map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{reads: map[string][]interface{}{}, counts: map[string]int{}}
}

func (f *fakeCaller) Read(_ context.Context, contract *contracts.Contract, function string, _ ...interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := contract.Name + "." + function
	f.counts[key]++
	out, ok := f.reads[key]
	if !ok {
		return nil, fault.New(fault.RPC, "no stub for %s", key)
	}
	return out, nil
}

func (f *fakeCaller) Write(context.Context, *contracts.Contract, string, ...interface{}) (*types.Transaction, error) {
	panic("aggregator must never write")
}

func (f *fakeCaller) WaitForConfirmation(context.Context, *types.Transaction, time.Duration) (*types.Receipt, error) {
	panic("aggregator must never wait for confirmations")
}

func (f *fakeCaller) Account() (common.Address, error) {
	return testAccount, nil
}

func (f *fakeCaller) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[key]
}

type statsStub struct {
	TotalDeposited     *big.Int
	TotalWithdrawn     *big.Int
	StreakMonths       *big.Int
	LastDepositTime    *big.Int
	ProfitShareClaimed *big.Int
}

type goalStub struct {
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
}

func stubAll(caller *fakeCaller) {
	caller.reads["asset.decimals"] = []interface{}{uint8(6)}
	caller.reads["vault.decimals"] = []interface{}{uint8(6)}
	caller.reads["asset.symbol"] = []interface{}{"IDRX"}
	caller.reads["asset.balanceOf"] = []interface{}{big.NewInt(10_000_000)}
	caller.reads["vault.balanceOf"] = []interface{}{big.NewInt(5_000_000)}
	caller.reads["vault.sharePrice"] = []interface{}{new(big.Int).Set(models.SharePriceBase)}
	caller.reads["savings.earned"] = []interface{}{big.NewInt(100)}
	caller.reads["savings.getActiveGoals"] = []interface{}{[]goalStub{
		{
			GoalId:       big.NewInt(1),
			GoalType:     uint8(models.GoalUmrah),
			TargetAmount: big.NewInt(2_500_000_000),
			TotalSaved:   big.NewInt(500_000_000),
			TargetDate:   big.NewInt(time.Now().AddDate(1, 0, 0).Unix()),
			IsActive:     true,
		},
		// Placeholder slot: zero target, must be dropped.
		{GoalId: big.NewInt(0), TargetAmount: big.NewInt(0)},
	}}
	caller.reads["savings.getCompletedGoals"] = []interface{}{[]goalStub{}}
	caller.reads["savings.userStats"] = []interface{}{statsStub{
		TotalDeposited:     big.NewInt(600_000_000),
		TotalWithdrawn:     big.NewInt(100_000_000),
		StreakMonths:       big.NewInt(3),
		LastDepositTime:    big.NewInt(time.Now().Unix()),
		ProfitShareClaimed: big.NewInt(0),
	}}
	caller.reads["savings.getTVL"] = []interface{}{big.NewInt(1_000_000_000)}
	caller.reads["savings.getTotalUsers"] = []interface{}{big.NewInt(7)}
	caller.reads["faucet.claimAmount"] = []interface{}{big.NewInt(1_000_000)}
	caller.reads["faucet.walletLimit"] = []interface{}{big.NewInt(10_000_000)}
	caller.reads["faucet.totalClaimed"] = []interface{}{big.NewInt(4_000_000)}
}

func setupAggregator(t *testing.T) (*Aggregator, *fakeCaller) {
	t.Helper()
	reg, err := contracts.NewRegistry(config.ContractsConfig{
		Vault:       common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Asset:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Savings:     common.HexToAddress("0x4444444444444444444444444444444444444444"),
		RewardToken: common.HexToAddress("0x5555555555555555555555555555555555555555"),
		Faucet:      common.HexToAddress("0x6666666666666666666666666666666666666666"),
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	caller := newFakeCaller()
	return New(caller, reg, 0, 0, zerolog.New(nil)), caller
}

func TestRefresh_FullSnapshot(t *testing.T) {
	agg, caller := setupAggregator(t)
	stubAll(caller)

	snap, err := agg.Refresh(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if snap.Account != testAccount {
		t.Errorf("Account = %s, want %s", snap.Account.Hex(), testAccount.Hex())
	}
	if snap.AssetDecimals != 6 || snap.ShareDecimals != 6 {
		t.Errorf("Decimals = %d/%d, want 6/6", snap.AssetDecimals, snap.ShareDecimals)
	}
	if snap.AssetSymbol != "IDRX" {
		t.Errorf("AssetSymbol = %q, want IDRX", snap.AssetSymbol)
	}
	if snap.AssetBalance.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Errorf("AssetBalance = %v, want 10000000", snap.AssetBalance)
	}
	if len(snap.ActiveGoals) != 1 {
		t.Fatalf("ActiveGoals = %d entries, want 1 after dropping the placeholder slot", len(snap.ActiveGoals))
	}
	if snap.ActiveGoals[0].Type != models.GoalUmrah {
		t.Errorf("Goal type = %v, want Umrah", snap.ActiveGoals[0].Type)
	}
	if snap.Stats == nil || snap.Stats.StreakMonths != 3 {
		t.Errorf("Stats = %+v, want streak of 3", snap.Stats)
	}
	if snap.Faucet == nil || snap.Faucet.Remaining().Cmp(big.NewInt(6_000_000)) != 0 {
		t.Errorf("Faucet = %+v, want remaining 6000000", snap.Faucet)
	}
	if len(snap.Errors) != 0 {
		t.Errorf("Errors = %v, want none", snap.Errors)
	}

	if got := agg.Current(); got != snap {
		t.Error("Current() does not return the freshly installed snapshot")
	}
}

func TestRefresh_PartialFailureKeepsIndependentReads(t *testing.T) {
	agg, caller := setupAggregator(t)
	stubAll(caller)
	delete(caller.reads, "savings.getTVL")
	delete(caller.reads, "faucet.claimAmount")

	snap, err := agg.Refresh(context.Background(), testAccount)
	if !fault.Is(err, fault.RefreshFailed) {
		t.Fatalf("Refresh() error = %v, want %s", err, fault.RefreshFailed)
	}

	// Failed reads are recorded; everything else still lands.
	if _, ok := snap.Errors["tvl"]; !ok {
		t.Errorf("Errors = %v, want a tvl entry", snap.Errors)
	}
	if _, ok := snap.Errors["faucet"]; !ok {
		t.Errorf("Errors = %v, want a faucet entry", snap.Errors)
	}
	if snap.TVL != nil {
		t.Errorf("TVL = %v, want nil rather than a fabricated value", snap.TVL)
	}
	if snap.AssetBalance == nil || snap.AssetBalance.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Errorf("AssetBalance = %v, want 10000000 despite other failures", snap.AssetBalance)
	}
	if len(snap.ActiveGoals) != 1 {
		t.Errorf("ActiveGoals = %d entries, want 1", len(snap.ActiveGoals))
	}

	// The partial snapshot is still installed.
	if agg.Current() != snap {
		t.Error("Partial snapshot was not installed")
	}
}

func TestRefresh_ReplacesSnapshotWholesale(t *testing.T) {
	agg, caller := setupAggregator(t)
	stubAll(caller)

	first, err := agg.Refresh(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("First Refresh() error = %v", err)
	}

	caller.mu.Lock()
	caller.reads["asset.balanceOf"] = []interface{}{big.NewInt(999)}
	caller.mu.Unlock()

	second, err := agg.Refresh(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("Second Refresh() error = %v", err)
	}

	if first == second {
		t.Fatal("Refresh() patched the old snapshot instead of replacing it")
	}
	if first.AssetBalance.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Error("Old snapshot was mutated by the second refresh")
	}
	if second.AssetBalance.Cmp(big.NewInt(999)) != 0 {
		t.Errorf("New AssetBalance = %v, want 999", second.AssetBalance)
	}
}

func TestRefresh_TokenMetaFetchedOnce(t *testing.T) {
	agg, caller := setupAggregator(t)
	stubAll(caller)

	for i := 0; i < 3; i++ {
		if _, err := agg.Refresh(context.Background(), testAccount); err != nil {
			t.Fatalf("Refresh() #%d error = %v", i, err)
		}
	}

	if n := caller.count("asset.decimals"); n != 1 {
		t.Errorf("asset.decimals queried %d times, want 1", n)
	}
	if n := caller.count("asset.symbol"); n != 1 {
		t.Errorf("asset.symbol queried %d times, want 1", n)
	}
	if n := caller.count("asset.balanceOf"); n != 3 {
		t.Errorf("asset.balanceOf queried %d times, want 3", n)
	}
}

func TestCurrent_NilBeforeFirstRefresh(t *testing.T) {
	agg, _ := setupAggregator(t)
	if agg.Current() != nil {
		t.Error("Current() should be nil before the first refresh")
	}
}
