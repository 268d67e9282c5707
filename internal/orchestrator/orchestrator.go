package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"savings-gateway/internal/aggregator"
	"savings-gateway/internal/contracts"
	"savings-gateway/internal/fault"
	"savings-gateway/internal/interfaces"
	"savings-gateway/internal/metrics"
	"savings-gateway/internal/models"
)

// State is the orchestrator's position inside one action invocation.
type State string

const (
	StateIdle                State = "IDLE"
	StateValidating          State = "VALIDATING"
	StateApproving           State = "APPROVING"
	StateApprovalConfirming  State = "APPROVAL_CONFIRMING"
	StateExecuting           State = "EXECUTING"
	StateExecutionConfirming State = "EXECUTION_CONFIRMING"
	StateRefreshing          State = "REFRESHING"
	StateSucceeded           State = "SUCCEEDED"
	StateFailed              State = "FAILED"
)

// CallSpec is one contract write.
type CallSpec struct {
	Contract *contracts.Contract
	Function string
	Args     []interface{}
}

// ApprovalSpec describes the allowance an action needs before its primary
// call can pull funds. The approval transaction is only submitted when the
// current allowance falls short.
type ApprovalSpec struct {
	Token   *contracts.Contract
	Spender common.Address
	Amount  *big.Int
}

// Action is a declarative description of one orchestrated domain action:
// an optional validation rule, an optional approval step, the primary call,
// and an optional secondary call decided after the primary confirms.
type Action struct {
	Kind     models.ActionKind
	Amount   *big.Int
	Decimals uint8

	// Validate re-checks preconditions against fresh chain state. It must
	// not submit any transaction.
	Validate func(ctx context.Context) error

	Approval *ApprovalSpec
	Call     CallSpec

	// Secondary is consulted once the primary call has confirmed; returning
	// nil skips the second pass.
	Secondary func(ctx context.Context, receipt *types.Receipt) (*CallSpec, error)

	// OnState observes state transitions. Test hook; may be nil.
	OnState func(State)
}

// Result reports a finished action.
type Result struct {
	ActionID string             `json:"action_id"`
	Kind     models.ActionKind  `json:"kind"`
	Account  common.Address     `json:"account"`
	TxHashes []common.Hash      `json:"tx_hashes"`
	Snapshot *models.Snapshot   `json:"-"`
	// Stale is set when the post-success refresh failed and displayed data
	// may lag the chain.
	Stale bool `json:"stale"`
}

// Orchestrator executes domain actions as deterministic sequences of chain
// operations with a state-refresh guarantee on success.
type Orchestrator struct {
	caller         interfaces.ChainCaller
	agg            *aggregator.Aggregator
	emitter        interfaces.ActionEmitter
	logger         zerolog.Logger
	confirmTimeout time.Duration

	mu       sync.Mutex
	inflight map[common.Address]models.ActionKind
	pending  map[string]*models.PendingTransaction
}

func New(caller interfaces.ChainCaller, agg *aggregator.Aggregator, emitter interfaces.ActionEmitter, confirmTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		caller:         caller,
		agg:            agg,
		emitter:        emitter,
		logger:         logger,
		confirmTimeout: confirmTimeout,
		inflight:       map[common.Address]models.ActionKind{},
		pending:        map[string]*models.PendingTransaction{},
	}
}

// PendingTransactions returns copies of the orchestrator's transaction
// records; the originals are never shared.
func (o *Orchestrator) PendingTransactions() []models.PendingTransaction {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.PendingTransaction, 0, len(o.pending))
	for _, tx := range o.pending {
		out = append(out, *tx)
	}
	return out
}

// Execute runs one action through the state machine. At most one action per
// account may be in flight; a concurrent request fails with ActionInProgress
// and performs no chain call.
func (o *Orchestrator) Execute(ctx context.Context, action *Action) (*Result, error) {
	account, err := o.caller.Account()
	if err != nil {
		return nil, err
	}

	if err := o.acquire(account, action.Kind); err != nil {
		return nil, err
	}
	defer o.release(account)

	actionID := uuid.NewString()
	result := &Result{ActionID: actionID, Kind: action.Kind, Account: account}
	log := o.logger.With().
		Str("actionId", actionID).
		Str("kind", action.Kind.String()).
		Str("account", account.Hex()).
		Logger()

	err = o.run(ctx, action, account, result, log)
	if err != nil {
		o.finish(action, result, err, log)
		return nil, err
	}
	o.finish(action, result, nil, log)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, action *Action, account common.Address, result *Result, log zerolog.Logger) error {
	enter := func(s State) {
		log.Debug().Str("state", string(s)).Msg("State transition")
		if action.OnState != nil {
			action.OnState(s)
		}
	}

	enter(StateValidating)
	if action.Validate != nil {
		if err := action.Validate(ctx); err != nil {
			return err
		}
	}

	if action.Approval != nil {
		skip, err := o.allowanceSuffices(ctx, account, action.Approval)
		if err != nil {
			return err
		}
		if !skip {
			enter(StateApproving)
			tx, err := o.submit(ctx, action.Kind, CallSpec{
				Contract: action.Approval.Token,
				Function: "approve",
				Args:     []interface{}{action.Approval.Spender, action.Approval.Amount},
			}, result)
			if err != nil {
				return err
			}
			enter(StateApprovalConfirming)
			if _, err := o.confirm(ctx, tx, log); err != nil {
				return err
			}
		}
	}

	enter(StateExecuting)
	tx, err := o.submit(ctx, action.Kind, action.Call, result)
	if err != nil {
		return err
	}
	enter(StateExecutionConfirming)
	receipt, err := o.confirm(ctx, tx, log)
	if err != nil {
		return err
	}

	if action.Secondary != nil {
		secondary, err := action.Secondary(ctx, receipt)
		if err != nil {
			return err
		}
		if secondary != nil {
			enter(StateExecuting)
			tx, err := o.submit(ctx, action.Kind, *secondary, result)
			if err != nil {
				return err
			}
			enter(StateExecutionConfirming)
			if _, err := o.confirm(ctx, tx, log); err != nil {
				return err
			}
		}
	}

	// Best effort: the chain writes are final regardless of whether the
	// snapshot catches up now.
	enter(StateRefreshing)
	snap, refreshErr := o.agg.Refresh(ctx, account)
	result.Snapshot = snap
	if refreshErr != nil {
		result.Stale = true
		log.Warn().Err(refreshErr).Msg("Post-action refresh failed, displayed data may be stale")
	}

	enter(StateSucceeded)
	return nil
}

// allowanceSuffices reads the live allowance; a sufficient one skips the
// approve transaction entirely.
func (o *Orchestrator) allowanceSuffices(ctx context.Context, owner common.Address, spec *ApprovalSpec) (bool, error) {
	out, err := o.caller.Read(ctx, spec.Token, "allowance", owner, spec.Spender)
	if err != nil {
		return false, err
	}
	allowance, err := contracts.BigInt(out)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(spec.Amount) >= 0, nil
}

func (o *Orchestrator) submit(ctx context.Context, kind models.ActionKind, call CallSpec, result *Result) (*types.Transaction, error) {
	tx, err := o.caller.Write(ctx, call.Contract, call.Function, call.Args...)
	if err != nil {
		return nil, err
	}
	result.TxHashes = append(result.TxHashes, tx.Hash())
	o.trackPending(kind, tx.Hash())
	return tx, nil
}

func (o *Orchestrator) confirm(ctx context.Context, tx *types.Transaction, log zerolog.Logger) (*types.Receipt, error) {
	start := time.Now()
	receipt, err := o.caller.WaitForConfirmation(ctx, tx, o.confirmTimeout)
	switch {
	case err == nil:
		metrics.ObserveConfirmation(time.Since(start).Seconds())
		o.resolvePending(tx.Hash(), models.TxConfirmed)
		return receipt, nil
	case fault.Is(err, fault.TransactionReverted):
		o.resolvePending(tx.Hash(), models.TxFailed)
		return nil, err
	case fault.Is(err, fault.ConfirmationTimeout):
		// Outcome unknown: the record stays pending and a later refresh
		// will observe whatever landed.
		return nil, err
	case errors.Is(err, context.Canceled):
		// Caller abandoned the flow; not a failure.
		log.Info().Str("txHash", tx.Hash().Hex()).Msg("Confirmation wait cancelled, transaction left pending")
		return nil, err
	default:
		return nil, err
	}
}

func (o *Orchestrator) finish(action *Action, result *Result, err error, log zerolog.Logger) {
	status := "succeeded"
	var errMsg string
	if err != nil {
		switch {
		case fault.Is(err, fault.ConfirmationTimeout):
			status = "pending"
		case errors.Is(err, context.Canceled):
			// No terminal outcome to report.
			return
		default:
			status = "failed"
		}
		errMsg = err.Error()
		log.Error().Err(err).Str("status", status).Msg("Action did not succeed")
		if action.OnState != nil && status == "failed" {
			action.OnState(StateFailed)
		}
	} else {
		log.Info().Int("transactions", len(result.TxHashes)).Msg("Action succeeded")
	}
	metrics.ObserveAction(action.Kind.String(), status)

	if o.emitter == nil {
		return
	}
	hashes := make([]string, len(result.TxHashes))
	for i, h := range result.TxHashes {
		hashes[i] = h.Hex()
	}
	event := models.ActionEvent{
		ActionID:  result.ActionID,
		Account:   result.Account,
		Kind:      action.Kind,
		Status:    status,
		TxHashes:  hashes,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
	if action.Amount != nil {
		event.Amount = models.FormatUnits(action.Amount, action.Decimals)
	}
	if emitErr := o.emitter.EmitAction(event); emitErr != nil {
		log.Error().Err(emitErr).Msg("Failed to emit action event")
	}
}

func (o *Orchestrator) acquire(account common.Address, kind models.ActionKind) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if current, busy := o.inflight[account]; busy {
		return fault.New(fault.ActionInProgress, "%s is already in flight for %s", current, account.Hex())
	}
	o.inflight[account] = kind
	return nil
}

func (o *Orchestrator) release(account common.Address) {
	o.mu.Lock()
	delete(o.inflight, account)
	o.mu.Unlock()
}

func (o *Orchestrator) trackPending(kind models.ActionKind, hash common.Hash) {
	o.mu.Lock()
	o.pending[hash.Hex()] = &models.PendingTransaction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Hash:      hash,
		Status:    models.TxPending,
		CreatedAt: time.Now().UTC(),
	}
	o.mu.Unlock()
}

func (o *Orchestrator) resolvePending(hash common.Hash, status models.TxStatus) {
	o.mu.Lock()
	if tx, ok := o.pending[hash.Hex()]; ok {
		tx.Status = status
	}
	o.mu.Unlock()
}
