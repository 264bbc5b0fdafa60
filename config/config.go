package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Chain    ChainConfig
	Policy   PolicyConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// ChainConfig describes the EVM endpoint and the wrapped token. Decimals are a
// per-token on-chain fact; 0 means "ask the contract", anything else overrides.
type ChainConfig struct {
	RPCURL           string
	TokenAddress     string
	TreasuryAddress  string
	CollectorAddress string
	TokenDecimals    int32
	CallTimeout      time.Duration
	// Additional token contracts the collector scanner reconciles against.
	ScanTokens []string
}

// PolicyConfig carries the reward/fraud policy values. These were embedded
// constants in earlier iterations; keeping them here makes them operator-tunable
// per deployment without a rebuild.
type PolicyConfig struct {
	Version          string
	MinGiftAmount    int64
	DailyGiftCap     int
	MinWithdrawal    int64
	PassScore        int
	RewardPerPoint   int64
	StaleAfter       time.Duration
	RewardHold       time.Duration
	FreezeWindow     time.Duration
	MintTTL          time.Duration
	MintChunkSize    int
	WithdrawRetryMax int
	RiskMonitor      int
	RiskFreeze       int
	RiskSuspend      int
	BotHourlyCap     int
	MinContentLength int
	AuditFlagLimit   int
	BatchRatePerSec  float64
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8088"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DB_DSN", "camly:camly@tcp(localhost:3306)/camly?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  envOr("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: envOr("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "camly",
		},
		Chain: ChainConfig{
			RPCURL:           envOr("CHAIN_RPC_URL", "http://localhost:8545"),
			TokenAddress:     envOr("TOKEN_ADDRESS", ""),
			TreasuryAddress:  envOr("TREASURY_ADDRESS", ""),
			CollectorAddress: envOr("COLLECTOR_ADDRESS", ""),
			TokenDecimals:    int32(envInt("TOKEN_DECIMALS", 0)),
			CallTimeout:      30 * time.Second,
			ScanTokens:       envList("COLLECTOR_SCAN_TOKENS"),
		},
		Policy: PolicyConfig{
			Version:          envOr("POLICY_VERSION", "pplp-v1"),
			MinGiftAmount:    int64(envInt("MIN_GIFT_AMOUNT", 100)),
			DailyGiftCap:     envInt("DAILY_GIFT_CAP", 10),
			MinWithdrawal:    int64(envInt("MIN_WITHDRAWAL", 1000)),
			PassScore:        envInt("PASS_SCORE", 60),
			RewardPerPoint:   int64(envInt("REWARD_PER_POINT", 10)),
			StaleAfter:       24 * time.Hour,
			RewardHold:       48 * time.Hour,
			FreezeWindow:     72 * time.Hour,
			MintTTL:          7 * 24 * time.Hour,
			MintChunkSize:    50,
			WithdrawRetryMax: 3,
			RiskMonitor:      envInt("RISK_MONITOR", 25),
			RiskFreeze:       envInt("RISK_FREEZE", 50),
			RiskSuspend:      envInt("RISK_SUSPEND", 70),
			BotHourlyCap:     20,
			MinContentLength: 16,
			AuditFlagLimit:   3,
			BatchRatePerSec:  5,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
