package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"savings-gateway/internal/config"
)

var (
	// ErrUnknownFunction is returned for a call against an undeclared function.
	ErrUnknownFunction = errors.New("function is not declared on this contract")
	// ErrNotReadable is returned for a read against a state-changing function.
	ErrNotReadable = errors.New("function is not a view or pure function")
	// ErrNotWritable is returned for a write against a view or pure function.
	ErrNotWritable = errors.New("function does not change state")
)

// Contract couples a deployed address with its declared call surface.
type Contract struct {
	Name    string
	Address common.Address
	abi     abi.ABI
}

// Registry holds the typed call surfaces for every external contract.
// Declarations are validated when the registry is built; a malformed ABI
// fails construction rather than a later call.
type Registry struct {
	Asset       *Contract
	Vault       *Contract
	Savings     *Contract
	RewardToken *Contract
	Faucet      *Contract
}

func NewRegistry(cfg config.ContractsConfig) (*Registry, error) {
	asset, err := newContract("asset", cfg.Asset, erc20ABI)
	if err != nil {
		return nil, err
	}
	vault, err := newContract("vault", cfg.Vault, vaultABI)
	if err != nil {
		return nil, err
	}
	savings, err := newContract("savings", cfg.Savings, savingsABI)
	if err != nil {
		return nil, err
	}
	reward, err := newContract("reward-token", cfg.RewardToken, erc20ABI)
	if err != nil {
		return nil, err
	}
	faucet, err := newContract("faucet", cfg.Faucet, faucetABI)
	if err != nil {
		return nil, err
	}

	return &Registry{
		Asset:       asset,
		Vault:       vault,
		Savings:     savings,
		RewardToken: reward,
		Faucet:      faucet,
	}, nil
}

func newContract(name string, address common.Address, rawABI string) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		return nil, fmt.Errorf("parsing %s ABI: %w", name, err)
	}
	return &Contract{Name: name, Address: address, abi: parsed}, nil
}

func (c *Contract) method(name string) (abi.Method, error) {
	m, ok := c.abi.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("%s.%s: %w", c.Name, name, ErrUnknownFunction)
	}
	return m, nil
}

func isView(m abi.Method) bool {
	return m.StateMutability == "view" || m.StateMutability == "pure"
}

// PackRead encodes a query call. It rejects undeclared names and
// state-changing functions.
func (c *Contract) PackRead(name string, args ...interface{}) ([]byte, error) {
	m, err := c.method(name)
	if err != nil {
		return nil, err
	}
	if !isView(m) {
		return nil, fmt.Errorf("%s.%s: %w", c.Name, name, ErrNotReadable)
	}
	return c.abi.Pack(name, args...)
}

// PackWrite encodes a state-changing call. It rejects undeclared names and
// view functions.
func (c *Contract) PackWrite(name string, args ...interface{}) ([]byte, error) {
	m, err := c.method(name)
	if err != nil {
		return nil, err
	}
	if isView(m) {
		return nil, fmt.Errorf("%s.%s: %w", c.Name, name, ErrNotWritable)
	}
	return c.abi.Pack(name, args...)
}

// Unpack decodes a call's return data into its declared output values.
func (c *Contract) Unpack(name string, data []byte) ([]interface{}, error) {
	if _, err := c.method(name); err != nil {
		return nil, err
	}
	out, err := c.abi.Unpack(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: decoding output: %w", c.Name, name, err)
	}
	return out, nil
}
