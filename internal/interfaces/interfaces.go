package interfaces

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"savings-gateway/internal/contracts"
	"savings-gateway/internal/models"
)

// ChainCaller is the single choke point for contract state reads and signed
// transaction submission.
type ChainCaller interface {
	// Read performs a pure query. Safe to issue concurrently.
	Read(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) ([]interface{}, error)

	// Write submits a signed state-changing call. Requires an active
	// signing session.
	Write(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) (*types.Transaction, error)

	// WaitForConfirmation blocks until the transaction is mined or the
	// timeout elapses. Cancelling ctx abandons the wait without deciding
	// the transaction's outcome.
	WaitForConfirmation(ctx context.Context, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error)

	// Account returns the signing session's address, or an error when the
	// gateway runs read-only.
	Account() (common.Address, error)
}

// ActionEmitter publishes terminal action outcomes.
type ActionEmitter interface {
	EmitAction(event models.ActionEvent) error
}
