package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AssetRailConfig holds the blockchain-asset rail credentials and call policy.
type AssetRailConfig struct {
	AppID       string
	AppSecret   string
	BaseURL     string
	Timeout     time.Duration // per attempt
	MaxAttempts int
	Backoff     time.Duration
	SuccessCode int
	CoinID      string
	CoinSymbol  string
	Chain       string
	Decimals    int32
}

type CardRailConfig struct {
	SecretKey         string
	WebhookSecret     string
	Currency          string
	BaseURL           string
	MaxNetworkRetries int64
	Decimals          int32
}

// FeeConfig maps a fee kind to a decimal rate, e.g. "withdrawal_crypto" -> "0.02".
type FeeConfig map[string]string

type Config struct {
	Server    ServerConfig
	AssetRail AssetRailConfig
	CardRail  CardRailConfig
	Fees      FeeConfig
	JWTSecret string
	LogLevel  string
}

var envBindings = map[string]string{
	"server.port":              "PORT",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.name":            "DATABASE_NAME",
	"database.ssl_mode":        "DATABASE_SSL_MODE",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.password":           "REDIS_PASSWORD",
	"jwt.secret_key":           "JWT_SECRET_KEY",
	"log.level":                "LOG_LEVEL",
	"asset_rail.app_id":        "ASSET_RAIL_APP_ID",
	"asset_rail.app_secret":    "ASSET_RAIL_APP_SECRET",
	"asset_rail.base_url":      "ASSET_RAIL_BASE_URL",
	"card_rail.secret_key":     "CARD_RAIL_SECRET_KEY",
	"card_rail.webhook_secret": "CARD_RAIL_WEBHOOK_SECRET",
	"card_rail.base_url":       "CARD_RAIL_BASE_URL",
	"fees.withdrawal_crypto":   "FEE_WITHDRAWAL_CRYPTO",
	"fees.withdrawal_fiat":     "FEE_WITHDRAWAL_FIAT",
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("log.level", "info")

	viper.SetDefault("asset_rail.base_url", "https://ccpayment.com/ccpayment/v2")
	viper.SetDefault("asset_rail.timeout", 15*time.Second)
	viper.SetDefault("asset_rail.max_attempts", 3)
	viper.SetDefault("asset_rail.backoff", 200*time.Millisecond)
	viper.SetDefault("asset_rail.success_code", 10000)
	viper.SetDefault("asset_rail.coin_id", "1280")
	viper.SetDefault("asset_rail.coin_symbol", "USDT")
	viper.SetDefault("asset_rail.chain", "TRX")
	viper.SetDefault("asset_rail.decimals", 2)

	viper.SetDefault("card_rail.currency", "usd")
	viper.SetDefault("card_rail.max_network_retries", 2)
	viper.SetDefault("card_rail.decimals", 2)

	viper.SetDefault("fees.withdrawal_crypto", "0")
	viper.SetDefault("fees.withdrawal_fiat", "0")
}

// Load reads .env (if present), environment and defaults into a Config.
// It is called once at startup; components receive the result by injection.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithField("component", "config").Debug("no .env file loaded")
	}

	viper.AutomaticEnv()
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout"),
			WriteTimeout: viper.GetDuration("server.write_timeout"),
			IdleTimeout:  viper.GetDuration("server.idle_timeout"),
		},
		AssetRail: AssetRailConfig{
			AppID:       viper.GetString("asset_rail.app_id"),
			AppSecret:   viper.GetString("asset_rail.app_secret"),
			BaseURL:     viper.GetString("asset_rail.base_url"),
			Timeout:     viper.GetDuration("asset_rail.timeout"),
			MaxAttempts: viper.GetInt("asset_rail.max_attempts"),
			Backoff:     viper.GetDuration("asset_rail.backoff"),
			SuccessCode: viper.GetInt("asset_rail.success_code"),
			CoinID:      viper.GetString("asset_rail.coin_id"),
			CoinSymbol:  viper.GetString("asset_rail.coin_symbol"),
			Chain:       viper.GetString("asset_rail.chain"),
			Decimals:    viper.GetInt32("asset_rail.decimals"),
		},
		CardRail: CardRailConfig{
			SecretKey:         viper.GetString("card_rail.secret_key"),
			WebhookSecret:     viper.GetString("card_rail.webhook_secret"),
			Currency:          viper.GetString("card_rail.currency"),
			BaseURL:           viper.GetString("card_rail.base_url"),
			MaxNetworkRetries: viper.GetInt64("card_rail.max_network_retries"),
			Decimals:          viper.GetInt32("card_rail.decimals"),
		},
		Fees: FeeConfig{
			"withdrawal_crypto": viper.GetString("fees.withdrawal_crypto"),
			"withdrawal_fiat":   viper.GetString("fees.withdrawal_fiat"),
		},
		JWTSecret: viper.GetString("jwt.secret_key"),
		LogLevel:  viper.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate refuses configurations the rails cannot operate with.
func (c *Config) Validate() error {
	if c.AssetRail.AppID == "" || c.AssetRail.AppSecret == "" {
		return fmt.Errorf("asset rail credentials are required")
	}
	if c.CardRail.SecretKey == "" || c.CardRail.WebhookSecret == "" {
		return fmt.Errorf("card rail credentials are required")
	}
	if c.AssetRail.MaxAttempts < 1 {
		return fmt.Errorf("asset_rail.max_attempts must be at least 1")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	return nil
}

// SetupLogging configures the process-wide logrus logger.
func SetupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
