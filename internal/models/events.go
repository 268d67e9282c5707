package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ActionKind names one orchestrated domain action.
type ActionKind string

const (
	ActionVaultDeposit   ActionKind = "vault_deposit"
	ActionVaultWithdraw  ActionKind = "vault_withdraw"
	ActionCreateGoal     ActionKind = "create_goal"
	ActionGoalDeposit    ActionKind = "goal_deposit"
	ActionGoalWithdraw   ActionKind = "goal_withdraw"
	ActionPauseGoal      ActionKind = "pause_goal"
	ActionResumeGoal     ActionKind = "resume_goal"
	ActionClaimProfit    ActionKind = "claim_profit"
	ActionFaucetClaim    ActionKind = "faucet_claim"
	ActionFundProfitPool ActionKind = "fund_profit_pool"
)

func (k ActionKind) String() string { return string(k) }

// TxStatus tracks one in-flight chain operation.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// PendingTransaction is owned by the orchestrator; other layers only ever see
// copies of it.
type PendingTransaction struct {
	ID        string      `json:"id"`
	Kind      ActionKind  `json:"kind"`
	Hash      common.Hash `json:"hash"`
	Status    TxStatus    `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// ActionEvent is emitted once an orchestrated action reaches a terminal state.
type ActionEvent struct {
	ActionID  string         `json:"action_id"`
	Account   common.Address `json:"account"`
	Kind      ActionKind     `json:"kind"`
	Status    string         `json:"status"`
	TxHashes  []string       `json:"tx_hashes"`
	Amount    string         `json:"amount,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
