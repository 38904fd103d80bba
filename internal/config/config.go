// internal/config/config.go
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	Environment string

	// Telegram
	TelegramBotToken string

	// Solana
	SolanaRPCURL        string
	SolanaWSURL         string
	ProgramID           string
	ServiceWalletSeed   string
	ChainTimeoutSeconds int

	// Storage
	StorageBackend string // "files" or "redis"
	DataDir        string
	RedisURL       string

	// Wallet connect
	ConnectTokenSecret   string
	KeystoreSecret       string
	WalletConnectBaseURL string
	CallbackBaseURL      string

	// Faucet
	FaucetCooldownMinutes int
	FaucetAmountSOL       float64

	// Development helpers
	SeedDemo bool
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Telegram
		TelegramBotToken: getEnv("TELEGRAM_BOT_API_KEY", ""),

		// Solana
		SolanaRPCURL:        getEnv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		SolanaWSURL:         getEnv("SOLANA_WS_URL", "wss://api.devnet.solana.com"),
		ProgramID:           getEnv("SOLMEET_PROGRAM_ID", ""),
		ServiceWalletSeed:   getEnv("SERVICE_WALLET_SEED", ""),
		ChainTimeoutSeconds: getEnvInt("CHAIN_TIMEOUT_SECONDS", 5),

		// Storage
		StorageBackend: getEnv("STORAGE_BACKEND", "files"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),

		// Wallet connect
		ConnectTokenSecret:   getEnv("CONNECT_TOKEN_SECRET", "dev-connect-secret"),
		KeystoreSecret:       getEnv("KEYSTORE_SECRET", "dev-keystore-secret"),
		WalletConnectBaseURL: getEnv("WALLET_CONNECT_BASE_URL", "https://solmeet.app/connect"),
		CallbackBaseURL:      getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),

		// Faucet
		FaucetCooldownMinutes: getEnvInt("FAUCET_COOLDOWN_MINUTES", 60),
		FaucetAmountSOL:       getEnvFloat("FAUCET_AMOUNT_SOL", 1),

		// Development helpers
		SeedDemo: getEnvBool("SEED_DEMO", false),
	}
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
