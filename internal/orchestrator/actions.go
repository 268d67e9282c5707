package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"savings-gateway/internal/contracts"
	"savings-gateway/internal/fault"
	"savings-gateway/internal/interfaces"
	"savings-gateway/internal/models"
)

// Actions builds the descriptor for every domain action. Validation closures
// read fresh chain state so that a retry after a failure never trusts values
// cached by the failed attempt.
type Actions struct {
	reg    *contracts.Registry
	caller interfaces.ChainCaller
}

func NewActions(reg *contracts.Registry, caller interfaces.ChainCaller) *Actions {
	return &Actions{reg: reg, caller: caller}
}

func (a *Actions) readBigInt(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) (*big.Int, error) {
	out, err := a.caller.Read(ctx, contract, function, args...)
	if err != nil {
		return nil, err
	}
	return contracts.BigInt(out)
}

func (a *Actions) activeGoal(ctx context.Context, account common.Address, goalID uint64) (*models.Goal, error) {
	out, err := a.caller.Read(ctx, a.reg.Savings, "getActiveGoals", account)
	if err != nil {
		return nil, err
	}
	goals, err := contracts.DecodeGoals(out)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		if goals[i].GoalID == goalID {
			return &goals[i], nil
		}
	}
	return nil, fault.New(fault.Validation, "goal %d not found", goalID)
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fault.New(fault.Validation, "amount must be greater than zero")
	}
	return nil
}

// VaultDeposit moves base assets into the vault, minting shares.
func (a *Actions) VaultDeposit(amount *big.Int, decimals uint8) *Action {
	return &Action{
		Kind:     models.ActionVaultDeposit,
		Amount:   amount,
		Decimals: decimals,
		Validate: func(ctx context.Context) error {
			if err := requirePositive(amount); err != nil {
				return err
			}
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			balance, err := a.readBigInt(ctx, a.reg.Asset, "balanceOf", account)
			if err != nil {
				return err
			}
			if balance.Cmp(amount) < 0 {
				return fault.New(fault.InsufficientBalance, "asset balance %s is below deposit %s",
					models.FormatUnits(balance, decimals), models.FormatUnits(amount, decimals))
			}
			return nil
		},
		Approval: &ApprovalSpec{Token: a.reg.Asset, Spender: a.reg.Vault.Address, Amount: amount},
		Call:     CallSpec{Contract: a.reg.Vault, Function: "deposit", Args: []interface{}{amount}},
	}
}

// VaultWithdraw redeems vault shares for base assets.
func (a *Actions) VaultWithdraw(shares *big.Int, decimals uint8) *Action {
	return &Action{
		Kind:     models.ActionVaultWithdraw,
		Amount:   shares,
		Decimals: decimals,
		Validate: func(ctx context.Context) error {
			if err := requirePositive(shares); err != nil {
				return err
			}
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			balance, err := a.readBigInt(ctx, a.reg.Vault, "balanceOf", account)
			if err != nil {
				return err
			}
			if balance.Cmp(shares) < 0 {
				return fault.New(fault.InsufficientBalance, "share balance %s is below withdrawal %s",
					models.FormatUnits(balance, decimals), models.FormatUnits(shares, decimals))
			}
			return nil
		},
		Call: CallSpec{Contract: a.reg.Vault, Function: "withdraw", Args: []interface{}{shares}},
	}
}

// CreateGoalParams carries the create-goal inputs. TargetDate defaults to two
// years out and CustomName to "<Category> <year>" when left empty.
type CreateGoalParams struct {
	Type              models.GoalType
	TargetAmount      *big.Int
	TargetDate        time.Time
	MonthlyCommitment *big.Int
	CustomName        string
	Decimals          uint8
}

// CreateGoal registers a new savings goal on the ledger. Validation is fully
// local: a below-minimum target never reaches the chain.
func (a *Actions) CreateGoal(p CreateGoalParams) *Action {
	targetDate := p.TargetDate
	if targetDate.IsZero() {
		targetDate = time.Now().AddDate(2, 0, 0)
	}
	name := p.CustomName
	if name == "" {
		name = fmt.Sprintf("%s %d", p.Type, time.Now().Year())
	}

	return &Action{
		Kind:     models.ActionCreateGoal,
		Amount:   p.TargetAmount,
		Decimals: p.Decimals,
		Validate: func(ctx context.Context) error {
			if !p.Type.Valid() {
				return fault.New(fault.Validation, "unknown goal type %d", p.Type)
			}
			if err := requirePositive(p.TargetAmount); err != nil {
				return err
			}
			min := p.Type.MinimumTarget(p.Decimals)
			if p.TargetAmount.Cmp(min) < 0 {
				return fault.New(fault.Validation, "minimum target for %s is %s",
					p.Type, models.FormatUnits(min, p.Decimals))
			}
			minMonthly := models.MinMonthlyCommitment(p.Decimals)
			if p.MonthlyCommitment == nil || p.MonthlyCommitment.Cmp(minMonthly) < 0 {
				return fault.New(fault.Validation, "minimum monthly commitment is %s",
					models.FormatUnits(minMonthly, p.Decimals))
			}
			return nil
		},
		Call: CallSpec{
			Contract: a.reg.Savings,
			Function: "createGoal",
			Args: []interface{}{
				uint8(p.Type),
				p.TargetAmount,
				big.NewInt(targetDate.Unix()),
				p.MonthlyCommitment,
				name,
			},
		},
	}
}

// GoalDeposit moves vault shares into a savings goal.
func (a *Actions) GoalDeposit(goalID uint64, amount *big.Int, decimals uint8) *Action {
	return &Action{
		Kind:     models.ActionGoalDeposit,
		Amount:   amount,
		Decimals: decimals,
		Validate: func(ctx context.Context) error {
			if err := requirePositive(amount); err != nil {
				return err
			}
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			goal, err := a.activeGoal(ctx, account, goalID)
			if err != nil {
				return err
			}
			if goal.IsPaused {
				return fault.New(fault.Validation, "goal %d is paused", goalID)
			}
			balance, err := a.readBigInt(ctx, a.reg.Vault, "balanceOf", account)
			if err != nil {
				return err
			}
			if balance.Cmp(amount) < 0 {
				return fault.New(fault.InsufficientBalance, "share balance %s is below deposit %s",
					models.FormatUnits(balance, decimals), models.FormatUnits(amount, decimals))
			}
			return nil
		},
		Approval: &ApprovalSpec{Token: a.reg.Vault, Spender: a.reg.Savings.Address, Amount: amount},
		Call: CallSpec{
			Contract: a.reg.Savings,
			Function: "deposit",
			Args:     []interface{}{new(big.Int).SetUint64(goalID), amount},
		},
	}
}

// GoalWithdraw takes funds out of a goal. A full withdrawal additionally
// redeems the freed shares for the base asset in a second pass; a partial
// withdrawal stays invested in share form. That asymmetry is product policy.
func (a *Actions) GoalWithdraw(goalID uint64, amount *big.Int, all bool, decimals uint8) *Action {
	// Resolved during validation so the secondary pass sees the same value.
	withdrawn := new(big.Int)

	return &Action{
		Kind:     models.ActionGoalWithdraw,
		Amount:   withdrawn,
		Decimals: decimals,
		Validate: func(ctx context.Context) error {
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			goal, err := a.activeGoal(ctx, account, goalID)
			if err != nil {
				return err
			}
			if all {
				if goal.TotalSaved == nil || goal.TotalSaved.Sign() == 0 {
					return fault.New(fault.Validation, "goal %d has nothing to withdraw", goalID)
				}
				withdrawn.Set(goal.TotalSaved)
				return nil
			}
			if err := requirePositive(amount); err != nil {
				return err
			}
			if amount.Cmp(goal.TotalSaved) > 0 {
				return fault.New(fault.Validation, "amount exceeds goal balance %s",
					models.FormatUnits(goal.TotalSaved, decimals))
			}
			withdrawn.Set(amount)
			return nil
		},
		Call: CallSpec{
			Contract: a.reg.Savings,
			Function: "withdraw",
			Args:     []interface{}{new(big.Int).SetUint64(goalID), withdrawn},
		},
		Secondary: func(ctx context.Context, _ *types.Receipt) (*CallSpec, error) {
			if !all {
				return nil, nil
			}
			account, err := a.caller.Account()
			if err != nil {
				return nil, err
			}
			shareBalance, err := a.readBigInt(ctx, a.reg.Vault, "balanceOf", account)
			if err != nil {
				return nil, err
			}
			if shareBalance.Sign() == 0 {
				return nil, nil
			}
			redeem := withdrawn
			if shareBalance.Cmp(withdrawn) < 0 {
				redeem = shareBalance
			}
			return &CallSpec{
				Contract: a.reg.Vault,
				Function: "withdraw",
				Args:     []interface{}{new(big.Int).Set(redeem)},
			}, nil
		},
	}
}

// PauseGoal suspends contributions to a goal.
func (a *Actions) PauseGoal(goalID uint64) *Action {
	return &Action{
		Kind: models.ActionPauseGoal,
		Validate: func(ctx context.Context) error {
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			goal, err := a.activeGoal(ctx, account, goalID)
			if err != nil {
				return err
			}
			if goal.IsPaused {
				return fault.New(fault.Validation, "goal %d is already paused", goalID)
			}
			return nil
		},
		Call: CallSpec{
			Contract: a.reg.Savings,
			Function: "pauseGoal",
			Args:     []interface{}{new(big.Int).SetUint64(goalID)},
		},
	}
}

// ResumeGoal reactivates a paused goal.
func (a *Actions) ResumeGoal(goalID uint64) *Action {
	return &Action{
		Kind: models.ActionResumeGoal,
		Validate: func(ctx context.Context) error {
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			goal, err := a.activeGoal(ctx, account, goalID)
			if err != nil {
				return err
			}
			if !goal.IsPaused {
				return fault.New(fault.Validation, "goal %d is not paused", goalID)
			}
			return nil
		},
		Call: CallSpec{
			Contract: a.reg.Savings,
			Function: "resumeGoal",
			Args:     []interface{}{new(big.Int).SetUint64(goalID)},
		},
	}
}

// ClaimProfit collects accrued profit-share rewards. A zero claim is refused
// locally rather than submitted.
func (a *Actions) ClaimProfit(decimals uint8) *Action {
	return &Action{
		Kind:     models.ActionClaimProfit,
		Decimals: decimals,
		Validate: func(ctx context.Context) error {
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			earned, err := a.readBigInt(ctx, a.reg.Savings, "earned", account)
			if err != nil {
				return err
			}
			if earned.Sign() == 0 {
				return fault.New(fault.Validation, "no profit share to claim")
			}
			return nil
		},
		Call: CallSpec{Contract: a.reg.Savings, Function: "claimProfit"},
	}
}

// FaucetClaim requests test tokens, bounded by the per-wallet limit.
func (a *Actions) FaucetClaim() *Action {
	return &Action{
		Kind: models.ActionFaucetClaim,
		Validate: func(ctx context.Context) error {
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			limit, err := a.readBigInt(ctx, a.reg.Faucet, "walletLimit")
			if err != nil {
				return err
			}
			claimed, err := a.readBigInt(ctx, a.reg.Faucet, "totalClaimed", account)
			if err != nil {
				return err
			}
			if claimed.Cmp(limit) >= 0 {
				return fault.New(fault.Validation, "wallet limit reached, nothing left to claim")
			}
			return nil
		},
		Call: CallSpec{Contract: a.reg.Faucet, Function: "claim"},
	}
}

// FundProfitPool tops up the ledger's reward pool from the operator's reward
// token balance. Admin-only on chain; the gateway just orchestrates it.
func (a *Actions) FundProfitPool(amount *big.Int, decimals uint8) *Action {
	return &Action{
		Kind:     models.ActionFundProfitPool,
		Amount:   amount,
		Decimals: decimals,
		Validate: func(ctx context.Context) error {
			if err := requirePositive(amount); err != nil {
				return err
			}
			account, err := a.caller.Account()
			if err != nil {
				return err
			}
			balance, err := a.readBigInt(ctx, a.reg.RewardToken, "balanceOf", account)
			if err != nil {
				return err
			}
			if balance.Cmp(amount) < 0 {
				return fault.New(fault.InsufficientBalance, "reward token balance %s is below %s",
					models.FormatUnits(balance, decimals), models.FormatUnits(amount, decimals))
			}
			return nil
		},
		Approval: &ApprovalSpec{Token: a.reg.RewardToken, Spender: a.reg.Savings.Address, Amount: amount},
		Call:     CallSpec{Contract: a.reg.Savings, Function: "fundProfitPool", Args: []interface{}{amount}},
	}
}
