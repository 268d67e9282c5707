package aggregator

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"savings-gateway/internal/models"
)

// Progress returns a goal's completion percentage, clamped to [0, 100].
// A zero target reads as 0%, never a division fault.
func Progress(goal *models.Goal) int {
	if goal == nil || goal.TargetAmount == nil || goal.TargetAmount.Sign() == 0 {
		return 0
	}
	if goal.TotalSaved == nil || goal.TotalSaved.Sign() <= 0 {
		return 0
	}
	saved := new(big.Float).SetInt(goal.TotalSaved)
	target := new(big.Float).SetInt(goal.TargetAmount)
	ratio, _ := new(big.Float).Quo(saved, target).Float64()

	pct := int(math.Round(ratio * 100))
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// Growth returns the vault's growth since inception in percent, measured
// against the unit share price baseline of 1.0.
func Growth(sharePrice *big.Int) float64 {
	if sharePrice == nil || sharePrice.Sign() == 0 {
		return 0
	}
	price := new(big.Float).Quo(
		new(big.Float).SetInt(sharePrice),
		new(big.Float).SetInt(models.SharePriceBase),
	)
	growth, _ := new(big.Float).Mul(
		new(big.Float).Sub(price, big.NewFloat(1)),
		big.NewFloat(100),
	).Float64()
	return growth
}

// DisplayValues renders a snapshot's raw amounts in human-readable units for
// the presentation layer.
type DisplayValues struct {
	AssetBalance    string  `json:"asset_balance"`
	ShareBalance    string  `json:"share_balance"`
	SharePrice      string  `json:"share_price"`
	UnderlyingValue string  `json:"underlying_value"`
	Earned          string  `json:"earned"`
	TVL             string  `json:"tvl"`
	TotalUsers      string  `json:"total_users"`
	GrowthPercent   float64 `json:"growth_percent"`
}

func Display(snap *models.Snapshot) DisplayValues {
	if snap == nil {
		return DisplayValues{}
	}
	pos := snap.Position()
	dv := DisplayValues{
		AssetBalance:    models.FormatUnits(snap.AssetBalance, snap.AssetDecimals),
		ShareBalance:    models.FormatUnits(snap.ShareBalance, snap.ShareDecimals),
		SharePrice:      models.FormatUnits(snap.SharePrice, 18),
		UnderlyingValue: models.FormatUnits(pos.UnderlyingValue(), snap.ShareDecimals),
		Earned:          models.FormatUnits(snap.Earned, snap.ShareDecimals),
		TVL:             models.FormatUnits(snap.TVL, snap.ShareDecimals),
		GrowthPercent:   Growth(snap.SharePrice),
	}
	if snap.TotalUsers != nil {
		dv.TotalUsers = decimal.NewFromBigInt(snap.TotalUsers, 0).String()
	} else {
		dv.TotalUsers = "0"
	}
	return dv
}
