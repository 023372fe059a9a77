package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config contains all configuration parameters for the application.
type Config struct {
	Port              string `envconfig:"PORT" default:"8080"`
	DataDir           string `envconfig:"WALLET_DATA_DIR" default:"./wallet-data"`
	MarketplaceAPIURL string `envconfig:"MARKETPLACE_API_URL" required:"true"`
	SolanaRPCURL      string `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	ChatSocketURL     string `envconfig:"CHAT_SOCKET_URL" default:""`
	// LightKDF switches the vault to fast scrypt parameters. Development only.
	LightKDF bool `envconfig:"LIGHT_KDF" default:"false"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetDataDir returns the local wallet store directory
func GetDataDir() string {
	return Get().DataDir
}

// GetMarketplaceAPIURL returns the marketplace backend base URL
func GetMarketplaceAPIURL() string {
	return Get().MarketplaceAPIURL
}

// GetSolanaRPCURL returns Solana RPC URL from configuration
func GetSolanaRPCURL() string {
	return Get().SolanaRPCURL
}

// GetChatSocketURL returns the chat socket endpoint
func GetChatSocketURL() string {
	return Get().ChatSocketURL
}

// UseLightKDF reports whether the vault should use light scrypt parameters
func UseLightKDF() bool {
	return Get().LightKDF
}
