package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SharePriceBase is the vault's fixed-point unit share price (1.0 = 10^18).
var SharePriceBase = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// VaultPosition is the derived view of an account's vault holding.
type VaultPosition struct {
	ShareBalance *big.Int `json:"-"`
	SharePrice   *big.Int `json:"-"`
}

// UnderlyingValue converts the share balance into base-asset terms using the
// current share price.
func (p VaultPosition) UnderlyingValue() *big.Int {
	if p.ShareBalance == nil || p.SharePrice == nil {
		return new(big.Int)
	}
	v := new(big.Int).Mul(p.ShareBalance, p.SharePrice)
	return v.Quo(v, SharePriceBase)
}

// FaucetStats mirrors the test-token faucet's per-wallet accounting.
type FaucetStats struct {
	ClaimAmount  *big.Int `json:"-"`
	WalletLimit  *big.Int `json:"-"`
	TotalClaimed *big.Int `json:"-"`
}

// Remaining is the claimable allowance left for the wallet, floored at zero.
func (f FaucetStats) Remaining() *big.Int {
	if f.WalletLimit == nil || f.TotalClaimed == nil {
		return new(big.Int)
	}
	rem := new(big.Int).Sub(f.WalletLimit, f.TotalClaimed)
	if rem.Sign() < 0 {
		rem.SetInt64(0)
	}
	return rem
}

// Snapshot is one consistent-enough view of an account's on-chain state.
// It is fully replaced on every refresh, never patched in place. Reads that
// failed leave their field zero-valued and record the failure in Errors.
type Snapshot struct {
	Account common.Address `json:"account"`

	AssetDecimals uint8  `json:"asset_decimals"`
	ShareDecimals uint8  `json:"share_decimals"`
	AssetSymbol   string `json:"asset_symbol"`

	AssetBalance *big.Int `json:"-"`
	ShareBalance *big.Int `json:"-"`
	SharePrice   *big.Int `json:"-"`
	Earned       *big.Int `json:"-"`

	ActiveGoals    []Goal     `json:"active_goals"`
	CompletedGoals []Goal     `json:"completed_goals"`
	Stats          *UserStats `json:"stats,omitempty"`

	Faucet *FaucetStats `json:"faucet,omitempty"`

	TVL        *big.Int `json:"-"`
	TotalUsers *big.Int `json:"-"`

	// Errors maps failed read names to their messages; the corresponding
	// fields hold no fabricated values.
	Errors map[string]string `json:"errors,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Position returns the vault position derived from the snapshot.
func (s *Snapshot) Position() VaultPosition {
	return VaultPosition{ShareBalance: s.ShareBalance, SharePrice: s.SharePrice}
}

// Goal finds an active goal by id.
func (s *Snapshot) Goal(goalID uint64) *Goal {
	for i := range s.ActiveGoals {
		if s.ActiveGoals[i].GoalID == goalID {
			return &s.ActiveGoals[i]
		}
	}
	return nil
}
