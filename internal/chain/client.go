package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"savings-gateway/internal/config"
	"savings-gateway/internal/contracts"
	"savings-gateway/internal/fault"
)

// backend is the subset of ethclient.Client the adapter needs.
type backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

var _ backend = (*ethclient.Client)(nil)

// Client is the single choke point for contract reads and signed writes.
// It surfaces raw node errors upward, classified but never swallowed.
type Client struct {
	backend         backend
	signer          Signer
	chainID         *big.Int
	rateLimiter     *rate.Limiter
	pollInterval    time.Duration
	explorerBaseURL string
	logger          zerolog.Logger
	closeFn         func()
}

// CustomTransport adds API key authentication to HTTP requests.
type CustomTransport struct {
	Base   http.RoundTripper
	ApiKey string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if t.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.ApiKey)
	}
	return t.Base.RoundTrip(req)
}

// Dial connects to the node and, when a signer key is configured, opens the
// signing session. Without a key the client runs read-only.
func Dial(cfg config.ChainConfig, logger zerolog.Logger) (*Client, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &CustomTransport{
			Base:   http.DefaultTransport,
			ApiKey: cfg.ApiKey,
		},
	}

	rpcClient, err := rpc.DialHTTPWithClient(cfg.RpcEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)

	var signer Signer
	if cfg.SignerKey != "" {
		ks, err := NewKeySigner(cfg.SignerKey, chainID)
		if err != nil {
			rpcClient.Close()
			return nil, err
		}
		signer = ks
		logger.Info().Str("address", ks.Address().Hex()).Msg("Signing session active")
	} else {
		logger.Warn().Msg("No signer key configured, running read-only")
	}

	eth := ethclient.NewClient(rpcClient)

	return &Client{
		backend:         eth,
		signer:          signer,
		chainID:         chainID,
		rateLimiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		pollInterval:    cfg.ReceiptPollInterval,
		explorerBaseURL: cfg.ExplorerBaseURL,
		logger:          logger,
		closeFn:         eth.Close,
	}, nil
}

// NewClient wires a client over an existing backend. Used by tests and by
// callers that manage their own connection.
func NewClient(b backend, signer Signer, chainID *big.Int, pollInterval time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		backend:      b,
		signer:       signer,
		chainID:      chainID,
		rateLimiter:  rate.NewLimiter(rate.Inf, 1),
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Account returns the signing session address.
func (c *Client) Account() (common.Address, error) {
	if c.signer == nil {
		return common.Address{}, fault.New(fault.NoWalletConnected, "no signing session is active")
	}
	return c.signer.Address(), nil
}

// Read performs a pure contract query.
func (c *Client) Read(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) ([]interface{}, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	data, err := contract.PackRead(function, args...)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("contract", contract.Name).
		Str("function", function).
		Msg("Reading contract state")

	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract.Address, Data: data}, nil)
	if err != nil {
		return nil, fault.Wrap(fault.RPC, err, "%s.%s read failed", contract.Name, function)
	}

	return contract.Unpack(function, raw)
}

// Write simulates, signs, and submits a state-changing call.
func (c *Client) Write(ctx context.Context, contract *contracts.Contract, function string, args ...interface{}) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, fault.New(fault.NoWalletConnected, "cannot submit %s.%s without a signing session", contract.Name, function)
	}
	from := c.signer.Address()

	data, err := contract.PackWrite(function, args...)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{From: from, To: &contract.Address, Data: data}

	// Pre-flight simulation. A revert here never reaches the chain.
	if _, err := c.backend.CallContract(ctx, msg, nil); err != nil {
		reason := revertReason(err)
		return nil, fault.Wrap(fault.SimulationReverted, err, "%s.%s would revert: %s", contract.Name, function, reason)
	}

	tx, err := c.buildTx(ctx, from, contract.Address, data)
	if err != nil {
		return nil, err
	}

	signed, err := c.signer.SignTx(tx)
	if err != nil {
		if errors.Is(err, ErrSignerDeclined) {
			return nil, fault.Wrap(fault.UserRejected, err, "%s.%s was declined by the signer", contract.Name, function)
		}
		return nil, fault.Wrap(fault.RPC, err, "signing %s.%s", contract.Name, function)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fault.Wrap(fault.RPC, err, "submitting %s.%s", contract.Name, function)
	}

	c.logger.Info().
		Str("contract", contract.Name).
		Str("function", function).
		Str("txHash", signed.Hash().Hex()).
		Msg("Submitted transaction")

	return signed, nil
}

func (c *Client) buildTx(ctx context.Context, from, to common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fault.Wrap(fault.RPC, err, "fetching nonce")
	}

	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(fault.RPC, err, "fetching chain head")
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.RPC, err, "fetching gas tip")
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, fault.Wrap(fault.RPC, err, "estimating gas")
	}
	gas += gas / 5

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      data,
	}), nil
}

// WaitForConfirmation polls for the receipt until it lands, the timeout
// elapses, or ctx is cancelled. A mined-but-reverted transaction is an error,
// never a success. Cancellation returns ctx's error unclassified: the write
// may still land and a later refresh will observe it.
func (c *Client) WaitForConfirmation(ctx context.Context, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	hash := tx.Hash()
	for {
		receipt, err := c.backend.TransactionReceipt(waitCtx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fault.New(fault.TransactionReverted, "transaction %s reverted on chain", hash.Hex())
			}
			c.logger.Info().
				Str("txHash", hash.Hex()).
				Uint64("blockNumber", receipt.BlockNumber.Uint64()).
				Msg("Transaction confirmed")
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn().Err(err).Str("txHash", hash.Hex()).Msg("Receipt poll failed, retrying")
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				// The caller abandoned the wait.
				return nil, ctx.Err()
			}
			return nil, fault.New(fault.ConfirmationTimeout, "no receipt for %s within %s, outcome unknown", hash.Hex(), timeout)
		case <-ticker.C:
		}
	}
}

// BlockHead returns the current chain head number.
func (c *Client) BlockHead(ctx context.Context) (uint64, error) {
	return c.backend.BlockNumber(ctx)
}

// ExplorerURL returns the block explorer link for a transaction.
func (c *Client) ExplorerURL(txHash common.Hash) string {
	return fmt.Sprintf("%s%s", c.explorerBaseURL, txHash.Hex())
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// revertReason extracts the ABI-encoded revert string from a node error,
// falling back to the raw message.
func revertReason(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if hexData, ok := de.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(hexData); decErr == nil {
				if reason, unpackErr := gethabi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}
	return err.Error()
}
