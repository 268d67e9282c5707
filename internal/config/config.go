package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway.
type Config struct {
	LogLevel   string
	MaxRetries int
	RetryDelay time.Duration
	HTTP       HTTPConfig
	Chain      ChainConfig
	Contracts  ContractsConfig
	Kafka      KafkaConfig
}

// HTTPConfig holds the API server configuration.
type HTTPConfig struct {
	ListenAddr string
	Timeout    time.Duration
}

// ChainConfig holds the target network configuration.
type ChainConfig struct {
	RpcEndpoint         string
	ApiKey              string
	ChainID             int64
	RateLimit           float64
	ExplorerBaseURL     string
	ConfirmationTimeout time.Duration
	ReceiptPollInterval time.Duration
	// SignerKey is the hex-encoded signing key. Empty means read-only mode.
	SignerKey string
}

// ContractsConfig holds the deployed contract addresses. All of them are
// required; Load fails rather than defaulting to the zero address.
type ContractsConfig struct {
	Vault       common.Address
	Asset       common.Address
	Savings     common.Address
	RewardToken common.Address
	Faucet      common.Address
}

// KafkaConfig holds the activity event stream configuration. An empty broker
// address disables the Kafka emitter.
type KafkaConfig struct {
	BrokerAddress string
	Topic         string
}

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	config := &Config{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		MaxRetries: getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay: time.Duration(getEnvAsInt("RETRY_DELAY", 2)) * time.Second,
		HTTP: HTTPConfig{
			ListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
			Timeout:    time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
		},
		Chain: ChainConfig{
			RpcEndpoint:         getEnv("RPC_ENDPOINT", "https://sepolia.base.org"),
			ApiKey:              getEnv("RPC_API_KEY", ""),
			ChainID:             int64(getEnvAsInt("CHAIN_ID", 84532)),
			RateLimit:           getEnvAsFloat("RPC_RATE_LIMIT", 4),
			ExplorerBaseURL:     getEnv("EXPLORER_BASE_URL", "https://sepolia.basescan.org/tx/"),
			ConfirmationTimeout: time.Duration(getEnvAsInt("CONFIRMATION_TIMEOUT", 60)) * time.Second,
			ReceiptPollInterval: time.Duration(getEnvAsInt("RECEIPT_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			SignerKey:           getEnv("SIGNER_PRIVATE_KEY", ""),
		},
		Kafka: KafkaConfig{
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", ""),
			Topic:         getEnv("KAFKA_TOPIC", "savings-activity"),
		},
	}

	contracts, err := loadContracts()
	if err != nil {
		return nil, err
	}
	config.Contracts = *contracts

	if config.Chain.ConfirmationTimeout < time.Minute {
		return nil, fmt.Errorf("CONFIRMATION_TIMEOUT must be at least 60 seconds, got %s", config.Chain.ConfirmationTimeout)
	}

	return config, nil
}

func loadContracts() (*ContractsConfig, error) {
	vault, err := requireAddress("VAULT_ADDRESS")
	if err != nil {
		return nil, err
	}
	asset, err := requireAddress("ASSET_ADDRESS")
	if err != nil {
		return nil, err
	}
	savings, err := requireAddress("SAVINGS_ADDRESS")
	if err != nil {
		return nil, err
	}
	reward, err := requireAddress("REWARD_TOKEN_ADDRESS")
	if err != nil {
		return nil, err
	}
	faucet, err := requireAddress("FAUCET_ADDRESS")
	if err != nil {
		return nil, err
	}

	return &ContractsConfig{
		Vault:       vault,
		Asset:       asset,
		Savings:     savings,
		RewardToken: reward,
		Faucet:      faucet,
	}, nil
}

// requireAddress reads a contract address and rejects missing, malformed, or
// zero values.
func requireAddress(key string) (common.Address, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return common.Address{}, fmt.Errorf("%s is not set", key)
	}
	if !addressRe.MatchString(raw) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", key, raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s is the zero address", key)
	}
	return addr, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
