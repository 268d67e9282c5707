package models

import (
	"math/big"
	"time"
)

// GoalType enumerates the savings goal categories tracked by the ledger.
type GoalType uint8

const (
	GoalHajj GoalType = iota
	GoalUmrah
	GoalQurban
	GoalEducation
	GoalWedding
	GoalGeneral
)

// GoalCategory describes a goal type and its minimum target, in whole asset units.
type GoalCategory struct {
	Type          GoalType
	Name          string
	Description   string
	MinimumTarget int64
}

// GoalCategories lists every category the ledger accepts, indexed by GoalType.
var GoalCategories = []GoalCategory{
	{GoalHajj, "Hajj", "Save for pilgrimage", 7000},
	{GoalUmrah, "Umrah", "Visit the holy land", 2500},
	{GoalQurban, "Qurban", "Annual sacrifice", 500},
	{GoalEducation, "Education", "Islamic education", 1000},
	{GoalWedding, "Wedding", "Halal wedding", 3000},
	{GoalGeneral, "General", "General savings", 100},
}

// MinMonthlyCommitment is the global floor for monthly commitments,
// expressed in tenths of an asset unit (0.1).
const MinMonthlyCommitmentTenths = 1

func (t GoalType) Valid() bool {
	return int(t) < len(GoalCategories)
}

func (t GoalType) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return GoalCategories[t].Name
}

// MinimumTarget returns the category minimum scaled to the given decimals.
func (t GoalType) MinimumTarget(decimals uint8) *big.Int {
	if !t.Valid() {
		return new(big.Int)
	}
	min := big.NewInt(GoalCategories[t].MinimumTarget)
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return min.Mul(min, exp)
}

// MinMonthlyCommitment returns the global monthly floor scaled to the given decimals.
func MinMonthlyCommitment(decimals uint8) *big.Int {
	if decimals == 0 {
		return big.NewInt(1)
	}
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-1)), nil)
	return new(big.Int).Mul(big.NewInt(MinMonthlyCommitmentTenths), exp)
}

// Goal is the canonical record for one savings goal, normalized from the
// ledger's tuple encoding.
type Goal struct {
	GoalID            uint64    `json:"goal_id"`
	Type              GoalType  `json:"goal_type"`
	TargetAmount      *big.Int  `json:"-"`
	TotalSaved        *big.Int  `json:"-"`
	MonthlyCommitment *big.Int  `json:"-"`
	TargetDate        time.Time `json:"target_date"`
	StartDate         time.Time `json:"start_date"`
	IsActive          bool      `json:"is_active"`
	IsCompleted       bool      `json:"is_completed"`
	IsPaused          bool      `json:"is_paused"`
	CustomName        string    `json:"custom_name"`
}

// UserStats is the ledger's per-account aggregate, read-only.
type UserStats struct {
	TotalDeposited     *big.Int  `json:"-"`
	TotalWithdrawn     *big.Int  `json:"-"`
	StreakMonths       uint64    `json:"streak_months"`
	LastDepositTime    time.Time `json:"last_deposit_time"`
	ProfitShareClaimed *big.Int  `json:"-"`
}
