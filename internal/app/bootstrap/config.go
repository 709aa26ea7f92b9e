package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for M15.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	OfferingGRPCURL   string
	InvestmentGRPCURL string
	WalletGRPCURL     string

	KafkaBrokers        []string
	TopicEscrowDomain   string
	TopicEscrowAnalytic string
	DLQTopic            string

	JWTSecret       string
	AuditSigningKey string

	PlatformFeeRate float64
	ClaimWindow     time.Duration
	VaultLockTTL    time.Duration

	MaxDBConns          int32
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	ExpirySweepInterval time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL         string   `yaml:"postgres_url"`
		RedisURL            string   `yaml:"redis_url"`
		OfferingGRPCURL     string   `yaml:"offering_grpc_url"`
		InvestmentGRPCURL   string   `yaml:"investment_grpc_url"`
		WalletGRPCURL       string   `yaml:"wallet_grpc_url"`
		KafkaBrokers        []string `yaml:"kafka_brokers"`
		TopicEscrowDomain   string   `yaml:"topic_escrow_domain"`
		TopicEscrowAnalytic string   `yaml:"topic_escrow_analytics"`
		TopicDLQ            string   `yaml:"topic_dlq"`
	} `yaml:"dependencies"`
	Escrow struct {
		PlatformFeeRate float64 `yaml:"platform_fee_rate"`
		ClaimWindowDays int     `yaml:"claim_window_days"`
	} `yaml:"escrow"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// The audit signing key has no default on purpose: an escrow service that
// cannot sign its audit trail must refuse to start.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "M15-Revenue-Escrow-Service",
		HTTPPort:            8080,
		GRPCPort:            9090,
		TopicEscrowDomain:   "escrow.events",
		TopicEscrowAnalytic: "escrow.analytics",
		DLQTopic:            "revenue-escrow.dlq",
		PlatformFeeRate:     0.05,
		ClaimWindow:         90 * 24 * time.Hour,
		VaultLockTTL:        10 * time.Second,
		MaxDBConns:          20,
		OutboxPollInterval:  2 * time.Second,
		OutboxBatchSize:     100,
		ExpirySweepInterval: time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		cfg.OfferingGRPCURL = f.Dependencies.OfferingGRPCURL
		cfg.InvestmentGRPCURL = f.Dependencies.InvestmentGRPCURL
		cfg.WalletGRPCURL = f.Dependencies.WalletGRPCURL
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.TopicEscrowDomain != "" {
			cfg.TopicEscrowDomain = f.Dependencies.TopicEscrowDomain
		}
		if f.Dependencies.TopicEscrowAnalytic != "" {
			cfg.TopicEscrowAnalytic = f.Dependencies.TopicEscrowAnalytic
		}
		if f.Dependencies.TopicDLQ != "" {
			cfg.DLQTopic = f.Dependencies.TopicDLQ
		}
		if f.Escrow.PlatformFeeRate > 0 {
			cfg.PlatformFeeRate = f.Escrow.PlatformFeeRate
		}
		if f.Escrow.ClaimWindowDays > 0 {
			cfg.ClaimWindow = time.Duration(f.Escrow.ClaimWindowDays) * 24 * time.Hour
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.OfferingGRPCURL = envOrDefault("OFFERING_GRPC_URL", cfg.OfferingGRPCURL)
	cfg.InvestmentGRPCURL = envOrDefault("INVESTMENT_GRPC_URL", cfg.InvestmentGRPCURL)
	cfg.WalletGRPCURL = envOrDefault("WALLET_GRPC_URL", cfg.WalletGRPCURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.TopicEscrowDomain = envOrDefault("KAFKA_TOPIC_ESCROW_DOMAIN", cfg.TopicEscrowDomain)
	cfg.TopicEscrowAnalytic = envOrDefault("KAFKA_TOPIC_ESCROW_ANALYTICS", cfg.TopicEscrowAnalytic)
	cfg.DLQTopic = envOrDefault("KAFKA_TOPIC_ESCROW_DLQ", cfg.DLQTopic)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.AuditSigningKey = envOrDefault("AUDIT_SIGNING_KEY", cfg.AuditSigningKey)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.PlatformFeeRate = envFloat("PLATFORM_FEE_RATE", cfg.PlatformFeeRate)
	cfg.ClaimWindow = time.Duration(envInt("CLAIM_WINDOW_DAYS", int(cfg.ClaimWindow.Hours()/24))) * 24 * time.Hour
	cfg.VaultLockTTL = time.Duration(envInt("VAULT_LOCK_TTL_SECONDS", int(cfg.VaultLockTTL.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ExpirySweepInterval = time.Duration(envInt("EXPIRY_SWEEP_MINUTES", int(cfg.ExpirySweepInterval.Minutes()))) * time.Minute

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.AuditSigningKey == "" {
		return Config{}, fmt.Errorf("missing AUDIT_SIGNING_KEY")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.PlatformFeeRate <= 0 || cfg.PlatformFeeRate >= 1 {
		return Config{}, fmt.Errorf("PLATFORM_FEE_RATE must be in (0, 1), got %v", cfg.PlatformFeeRate)
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	out := trimNonEmpty(items)
	if len(out) == 0 {
		return fallback
	}
	return out
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
