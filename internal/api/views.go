package api

import (
	"time"

	"savings-gateway/internal/aggregator"
	"savings-gateway/internal/models"
)

type goalView struct {
	GoalID            uint64 `json:"goal_id"`
	Category          string `json:"category"`
	CustomName        string `json:"custom_name"`
	TargetAmount      string `json:"target_amount"`
	TotalSaved        string `json:"total_saved"`
	MonthlyCommitment string `json:"monthly_commitment"`
	TargetDate        string `json:"target_date,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
	ProgressPercent   int    `json:"progress_percent"`
	IsActive          bool   `json:"is_active"`
	IsCompleted       bool   `json:"is_completed"`
	IsPaused          bool   `json:"is_paused"`
}

type statsView struct {
	TotalDeposited     string `json:"total_deposited"`
	TotalWithdrawn     string `json:"total_withdrawn"`
	StreakMonths       uint64 `json:"streak_months"`
	ProfitShareClaimed string `json:"profit_share_claimed"`
}

type faucetView struct {
	ClaimAmount  string `json:"claim_amount"`
	WalletLimit  string `json:"wallet_limit"`
	TotalClaimed string `json:"total_claimed"`
	Remaining    string `json:"remaining"`
}

type portfolioView struct {
	Account        string                   `json:"account"`
	AssetSymbol    string                   `json:"asset_symbol"`
	Display        aggregator.DisplayValues `json:"balances"`
	ActiveGoals    []goalView               `json:"active_goals"`
	CompletedGoals []goalView               `json:"completed_goals"`
	Stats          *statsView               `json:"stats,omitempty"`
	Faucet         *faucetView              `json:"faucet,omitempty"`
	Errors         map[string]string        `json:"errors,omitempty"`
	Stale          bool                     `json:"stale"`
	FetchedAt      time.Time                `json:"fetched_at"`
}

func newPortfolioView(snap *models.Snapshot, stale bool) portfolioView {
	view := portfolioView{
		Account:        snap.Account.Hex(),
		AssetSymbol:    snap.AssetSymbol,
		Display:        aggregator.Display(snap),
		ActiveGoals:    goalViews(snap.ActiveGoals, snap.ShareDecimals),
		CompletedGoals: goalViews(snap.CompletedGoals, snap.ShareDecimals),
		Errors:         snap.Errors,
		Stale:          stale,
		FetchedAt:      snap.FetchedAt,
	}
	if snap.Stats != nil {
		view.Stats = &statsView{
			TotalDeposited:     models.FormatUnits(snap.Stats.TotalDeposited, snap.ShareDecimals),
			TotalWithdrawn:     models.FormatUnits(snap.Stats.TotalWithdrawn, snap.ShareDecimals),
			StreakMonths:       snap.Stats.StreakMonths,
			ProfitShareClaimed: models.FormatUnits(snap.Stats.ProfitShareClaimed, snap.ShareDecimals),
		}
	}
	if snap.Faucet != nil {
		view.Faucet = &faucetView{
			ClaimAmount:  models.FormatUnits(snap.Faucet.ClaimAmount, snap.AssetDecimals),
			WalletLimit:  models.FormatUnits(snap.Faucet.WalletLimit, snap.AssetDecimals),
			TotalClaimed: models.FormatUnits(snap.Faucet.TotalClaimed, snap.AssetDecimals),
			Remaining:    models.FormatUnits(snap.Faucet.Remaining(), snap.AssetDecimals),
		}
	}
	return view
}

func goalViews(goals []models.Goal, decimals uint8) []goalView {
	views := make([]goalView, 0, len(goals))
	for i := range goals {
		g := &goals[i]
		v := goalView{
			GoalID:            g.GoalID,
			Category:          g.Type.String(),
			CustomName:        g.CustomName,
			TargetAmount:      models.FormatUnits(g.TargetAmount, decimals),
			TotalSaved:        models.FormatUnits(g.TotalSaved, decimals),
			MonthlyCommitment: models.FormatUnits(g.MonthlyCommitment, decimals),
			ProgressPercent:   aggregator.Progress(g),
			IsActive:          g.IsActive,
			IsCompleted:       g.IsCompleted,
			IsPaused:          g.IsPaused,
		}
		if !g.TargetDate.IsZero() {
			v.TargetDate = g.TargetDate.Format(time.RFC3339)
		}
		if !g.StartDate.IsZero() {
			v.StartDate = g.StartDate.Format(time.RFC3339)
		}
		views = append(views, v)
	}
	return views
}
