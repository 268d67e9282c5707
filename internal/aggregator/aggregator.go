package aggregator

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"savings-gateway/internal/contracts"
	"savings-gateway/internal/fault"
	"savings-gateway/internal/interfaces"
	"savings-gateway/internal/metrics"
	"savings-gateway/internal/models"
)

// Aggregator fetches account snapshots and computes derived display values.
// It owns the cached snapshot; everyone else only reads the latest reference.
type Aggregator struct {
	caller     interfaces.ChainCaller
	reg        *contracts.Registry
	logger     zerolog.Logger
	maxRetries int
	retryDelay time.Duration

	mu       sync.RWMutex
	snapshot *models.Snapshot

	// Token decimals and symbol are per-token constants, fetched once and
	// cached for the session.
	metaOnce sync.Mutex
	meta     *tokenMeta
}

type tokenMeta struct {
	assetDecimals uint8
	shareDecimals uint8
	assetSymbol   string
}

func New(caller interfaces.ChainCaller, reg *contracts.Registry, maxRetries int, retryDelay time.Duration, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		caller:     caller,
		reg:        reg,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Current returns the latest snapshot reference, or nil before the first
// refresh.
func (a *Aggregator) Current() *models.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Refresh fetches a fresh snapshot for the account. All reads run
// concurrently; a failed read leaves its field zeroed and is recorded in the
// snapshot's Errors instead of blocking the others. The cached snapshot is
// replaced wholesale, never patched.
//
// The returned error is a RefreshFailed notification when any read failed;
// the snapshot itself is always returned and always installed.
func (a *Aggregator) Refresh(ctx context.Context, account common.Address) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Account:   account,
		Errors:    map[string]string{},
		FetchedAt: time.Now().UTC(),
	}

	meta := a.tokenMeta(ctx, snap)
	if meta != nil {
		snap.AssetDecimals = meta.assetDecimals
		snap.ShareDecimals = meta.shareDecimals
		snap.AssetSymbol = meta.assetSymbol
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	fail := func(name string, err error) {
		mu.Lock()
		snap.Errors[name] = err.Error()
		mu.Unlock()
		a.logger.Warn().Err(err).Str("read", name).Msg("Snapshot read failed")
	}

	reads := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"assetBalance", func(ctx context.Context) error {
			v, err := a.readBigInt(ctx, a.reg.Asset, "balanceOf", account)
			if err == nil {
				snap.AssetBalance = v
			}
			return err
		}},
		{"shareBalance", func(ctx context.Context) error {
			v, err := a.readBigInt(ctx, a.reg.Vault, "balanceOf", account)
			if err == nil {
				snap.ShareBalance = v
			}
			return err
		}},
		{"sharePrice", func(ctx context.Context) error {
			v, err := a.readBigInt(ctx, a.reg.Vault, "sharePrice")
			if err == nil {
				snap.SharePrice = v
			}
			return err
		}},
		{"earned", func(ctx context.Context) error {
			v, err := a.readBigInt(ctx, a.reg.Savings, "earned", account)
			if err == nil {
				snap.Earned = v
			}
			return err
		}},
		{"activeGoals", func(ctx context.Context) error {
			goals, err := a.readGoals(ctx, "getActiveGoals", account)
			if err == nil {
				snap.ActiveGoals = goals
			}
			return err
		}},
		{"completedGoals", func(ctx context.Context) error {
			goals, err := a.readGoals(ctx, "getCompletedGoals", account)
			if err == nil {
				snap.CompletedGoals = goals
			}
			return err
		}},
		{"userStats", func(ctx context.Context) error {
			out, err := a.read(ctx, a.reg.Savings, "userStats", account)
			if err != nil {
				return err
			}
			stats, err := contracts.DecodeUserStats(out)
			if err == nil {
				snap.Stats = stats
			}
			return err
		}},
		{"tvl", func(ctx context.Context) error {
			v, err := a.readBigInt(ctx, a.reg.Savings, "getTVL")
			if err == nil {
				snap.TVL = v
			}
			return err
		}},
		{"totalUsers", func(ctx context.Context) error {
			v, err := a.readBigInt(ctx, a.reg.Savings, "getTotalUsers")
			if err == nil {
				snap.TotalUsers = v
			}
			return err
		}},
		{"faucet", func(ctx context.Context) error {
			stats, err := a.readFaucet(ctx, account)
			if err == nil {
				snap.Faucet = stats
			}
			return err
		}},
	}

	for _, r := range reads {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				fail(name, err)
			}
		}(r.name, r.fn)
	}
	wg.Wait()

	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()

	if len(snap.Errors) > 0 {
		metrics.ObserveRefresh("partial")
		return snap, fault.New(fault.RefreshFailed, "%d of %d snapshot reads failed", len(snap.Errors), len(reads))
	}
	metrics.ObserveRefresh("ok")
	return snap, nil
}

func (a *Aggregator) tokenMeta(ctx context.Context, snap *models.Snapshot) *tokenMeta {
	a.metaOnce.Lock()
	defer a.metaOnce.Unlock()
	if a.meta != nil {
		return a.meta
	}

	assetDec, err := a.readUint8(ctx, a.reg.Asset, "decimals")
	if err != nil {
		snap.Errors["assetDecimals"] = err.Error()
		return nil
	}
	shareDec, err := a.readUint8(ctx, a.reg.Vault, "decimals")
	if err != nil {
		snap.Errors["shareDecimals"] = err.Error()
		return nil
	}
	symbol, err := a.readString(ctx, a.reg.Asset, "symbol")
	if err != nil {
		snap.Errors["assetSymbol"] = err.Error()
		return nil
	}

	a.meta = &tokenMeta{assetDecimals: assetDec, shareDecimals: shareDec, assetSymbol: symbol}
	return a.meta
}

func (a *Aggregator) readFaucet(ctx context.Context, account common.Address) (*models.FaucetStats, error) {
	claimAmount, err := a.readBigInt(ctx, a.reg.Faucet, "claimAmount")
	if err != nil {
		return nil, err
	}
	walletLimit, err := a.readBigInt(ctx, a.reg.Faucet, "walletLimit")
	if err != nil {
		return nil, err
	}
	claimed, err := a.readBigInt(ctx, a.reg.Faucet, "totalClaimed", account)
	if err != nil {
		return nil, err
	}
	return &models.FaucetStats{ClaimAmount: claimAmount, WalletLimit: walletLimit, TotalClaimed: claimed}, nil
}

func (a *Aggregator) readGoals(ctx context.Context, function string, account common.Address) ([]models.Goal, error) {
	out, err := a.read(ctx, a.reg.Savings, function, account)
	if err != nil {
		return nil, err
	}
	return contracts.DecodeGoals(out)
}

// read issues one query with retries; snapshot reads are idempotent, so
// transient node errors are retried with a fixed delay.
func (a *Aggregator) read(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	var err error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		out, err = a.caller.Read(ctx, contract, function, args...)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt < a.maxRetries {
			time.Sleep(a.retryDelay)
		}
	}
	return nil, err
}

func (a *Aggregator) readBigInt(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) (*big.Int, error) {
	out, err := a.read(ctx, contract, function, args...)
	if err != nil {
		return nil, err
	}
	return contracts.BigInt(out)
}

func (a *Aggregator) readUint8(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) (uint8, error) {
	out, err := a.read(ctx, contract, function, args...)
	if err != nil {
		return 0, err
	}
	return contracts.Uint8(out)
}

func (a *Aggregator) readString(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) (string, error) {
	out, err := a.read(ctx, contract, function, args...)
	if err != nil {
		return "", err
	}
	return contracts.String(out)
}
