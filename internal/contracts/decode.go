package contracts

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"savings-gateway/internal/models"
)

// rawGoal mirrors the ledger's goal tuple layout.
type rawGoal struct {
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

// rawUserStats mirrors the ledger's userStats tuple layout.
type rawUserStats struct {
	TotalDeposited     *big.Int
	TotalWithdrawn     *big.Int
	StreakMonths       *big.Int
	LastDepositTime    *big.Int
	ProfitShareClaimed *big.Int
}

// DecodeGoals normalizes a getActiveGoals/getCompletedGoals result into
// canonical Goal records. Slots with a zero target are placeholders in the
// ledger's array and are dropped.
func DecodeGoals(out []interface{}) ([]models.Goal, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("expected one output value, got %d", len(out))
	}
	raw := *abi.ConvertType(out[0], new([]rawGoal)).(*[]rawGoal)

	goals := make([]models.Goal, 0, len(raw))
	for _, g := range raw {
		if g.TargetAmount == nil || g.TargetAmount.Sign() == 0 {
			continue
		}
		goals = append(goals, models.Goal{
			GoalID:            g.GoalId.Uint64(),
			Type:              models.GoalType(g.GoalType),
			TargetAmount:      g.TargetAmount,
			TotalSaved:        g.TotalSaved,
			MonthlyCommitment: g.MonthlyCommitment,
			TargetDate:        unixTime(g.TargetDate),
			StartDate:         unixTime(g.StartDate),
			IsActive:          g.IsActive,
			IsCompleted:       g.IsCompleted,
			IsPaused:          g.IsPaused,
			CustomName:        g.CustomName,
		})
	}
	return goals, nil
}

// DecodeUserStats normalizes a userStats result.
func DecodeUserStats(out []interface{}) (*models.UserStats, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("expected one output value, got %d", len(out))
	}
	raw := *abi.ConvertType(out[0], new(rawUserStats)).(*rawUserStats)

	return &models.UserStats{
		TotalDeposited:     raw.TotalDeposited,
		TotalWithdrawn:     raw.TotalWithdrawn,
		StreakMonths:       raw.StreakMonths.Uint64(),
		LastDepositTime:    unixTime(raw.LastDepositTime),
		ProfitShareClaimed: raw.ProfitShareClaimed,
	}, nil
}

// BigInt extracts a single uint256 output.
func BigInt(out []interface{}) (*big.Int, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("expected one output value, got %d", len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected *big.Int output, got %T", out[0])
	}
	return v, nil
}

// Uint8 extracts a single uint8 output.
func Uint8(out []interface{}) (uint8, error) {
	if len(out) != 1 {
		return 0, fmt.Errorf("expected one output value, got %d", len(out))
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("expected uint8 output, got %T", out[0])
	}
	return v, nil
}

// String extracts a single string output.
func String(out []interface{}) (string, error) {
	if len(out) != 1 {
		return "", fmt.Errorf("expected one output value, got %d", len(out))
	}
	v, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("expected string output, got %T", out[0])
	}
	return v, nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
