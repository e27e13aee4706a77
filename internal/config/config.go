// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AntiCheat AntiCheatConfig `mapstructure:"anticheat"`
	Tier      TierConfig      `mapstructure:"tier"`
	Mint      MintConfig      `mapstructure:"mint"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AntiCheatConfig holds the validator tolerances. Keeping them here rather
// than as scattered literals lets ops tune them and lets property tests
// sweep them.
type AntiCheatConfig struct {
	// MaxSessionDuration is an exclusive upper bound: a session elapsing
	// exactly this long is still acceptable, anything longer is rejected.
	MaxSessionDuration time.Duration `mapstructure:"max_session_duration"`
	// NetworkDelayTolerance bounds |client elapsed - server elapsed|.
	NetworkDelayTolerance time.Duration `mapstructure:"network_delay_tolerance"`
	// ClockSkewTolerance is how far a reported timestamp may sit in the
	// future of the server clock before it is treated as tampered.
	ClockSkewTolerance time.Duration `mapstructure:"clock_skew_tolerance"`
	// MinScorePerSecond / MaxScorePerSecond bound the plausible-score
	// envelope around a 1 point-per-second baseline.
	MinScorePerSecond float64 `mapstructure:"min_score_per_second"`
	MaxScorePerSecond float64 `mapstructure:"max_score_per_second"`
}

// TierConfig holds the score thresholds for the discount tiers, best first.
// A score at or above Tier0 maps to tier 0, and so on down to tier 3.
type TierConfig struct {
	Tier0 float64 `mapstructure:"tier0"`
	Tier1 float64 `mapstructure:"tier1"`
	Tier2 float64 `mapstructure:"tier2"`
}

// MintConfig holds whitelist and allowance-proof configuration.
type MintConfig struct {
	// Whitelist is the set of wallet addresses eligible to mint. An empty
	// list means the whitelist is open.
	Whitelist []string `mapstructure:"whitelist"`
	// ProofSecret signs mint-allowance proofs. Must be set in production.
	ProofSecret string `mapstructure:"proof_secret"`
	// ProofTTL bounds how long an issued proof stays redeemable.
	ProofTTL time.Duration `mapstructure:"proof_ttl"`
	// MetadataBaseURL is the prefix for token metadata URLs.
	MetadataBaseURL string `mapstructure:"metadata_base_url"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., SERVER_PORT, DATABASE_HOST, MINT_PROOF_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mintgame")
	v.SetDefault("database.name", "mintgame")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Anti-cheat defaults
	v.SetDefault("anticheat.max_session_duration", "30m")
	v.SetDefault("anticheat.network_delay_tolerance", "35s")
	v.SetDefault("anticheat.clock_skew_tolerance", "10s")
	v.SetDefault("anticheat.min_score_per_second", 0.1)
	v.SetDefault("anticheat.max_score_per_second", 2.0)

	// Tier thresholds
	v.SetDefault("tier.tier0", 300)
	v.SetDefault("tier.tier1", 100)
	v.SetDefault("tier.tier2", 50)

	// Mint defaults
	v.SetDefault("mint.proof_ttl", "15m")
	v.SetDefault("mint.metadata_base_url", "https://meta.mintgame.example/models")
}
