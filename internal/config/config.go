package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the ledger API.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	NATSSubject         string
	JWTSecret           string
	JWTIssuer           string
	CORSAllowOrigins    string
	LedgerCacheTTL      time.Duration
	CascadeTxMaxWait    time.Duration
	CascadeTxTimeout    time.Duration
	PaymentTxTimeout    time.Duration
	PaymentTxAttempts   int
	SerializablePayment bool
	DebtConcurrency     int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ESCOLA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Escola Ledger API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "escola.ledger.events")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("ledger.cache_ttl", "10m")
	v.SetDefault("cascade.tx_max_wait", "30s")
	v.SetDefault("cascade.tx_timeout", "30s")
	v.SetDefault("payment.tx_timeout", "15s")
	v.SetDefault("payment.tx_attempts", 3)
	v.SetDefault("payment.serializable", true)
	v.SetDefault("debt.concurrency", 4)

	cacheTTL, err := parseDuration(v, "ledger.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	cascadeWait, err := parseDuration(v, "cascade.tx_max_wait")
	if err != nil {
		return Config{}, err
	}
	cascadeTimeout, err := parseDuration(v, "cascade.tx_timeout")
	if err != nil {
		return Config{}, err
	}
	paymentTimeout, err := parseDuration(v, "payment.tx_timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		NATSSubject:         v.GetString("nats.subject"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTIssuer:           v.GetString("jwt.issuer"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		LedgerCacheTTL:      cacheTTL,
		CascadeTxMaxWait:    cascadeWait,
		CascadeTxTimeout:    cascadeTimeout,
		PaymentTxTimeout:    paymentTimeout,
		PaymentTxAttempts:   v.GetInt("payment.tx_attempts"),
		SerializablePayment: v.GetBool("payment.serializable"),
		DebtConcurrency:     v.GetInt("debt.concurrency"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.PaymentTxAttempts <= 0 {
		cfg.PaymentTxAttempts = 3
	}

	if cfg.DebtConcurrency <= 0 {
		cfg.DebtConcurrency = 4
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
