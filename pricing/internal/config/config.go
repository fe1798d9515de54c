package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8082"`
	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR" envDefault:":50052"`

	// Catalog and campaigns come from Postgres when DATABASE_URL is set,
	// otherwise from CampaignsFile.
	DatabaseURL     string        `env:"DATABASE_URL"`
	CampaignsFile   string        `env:"CAMPAIGNS_FILE" envDefault:"pricing/campaigns.yaml"`
	CampaignRefresh time.Duration `env:"CAMPAIGN_REFRESH" envDefault:"1m"`

	MetaBackend string `env:"META_BACKEND" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"pricing/meta.db"`

	RedisAddr  string        `env:"REDIS_ADDR"`
	RedisPW    string        `env:"REDIS_PW"`
	RedisDB    int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"48h"`

	JWTSecret      string `env:"JWT_SECRET"`
	InternalSecret string `env:"INTERNAL_SECRET"`
	ZMQPort        int    `env:"ZMQ_PORT"`

	PriceBase           string          `env:"PRICE_BASE" envDefault:"regular"`
	TaxRate             decimal.Decimal `env:"TAX_RATE" envDefault:"0"` // percent, 20 for 20%
	PricesIncludeTax    bool            `env:"PRICES_INCLUDE_TAX"`
	DisplayIncludingTax bool            `env:"DISPLAY_INCLUDING_TAX"`
	FlatShipping        decimal.Decimal `env:"FLAT_SHIPPING" envDefault:"0"`
}

// Load reads the optional dotenv file and parses the environment.
func Load(dotenv string) (Config, error) {
	_ = godotenv.Load(dotenv)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.MetaBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("META_BACKEND=postgres requires DATABASE_URL")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown META_BACKEND %q", c.MetaBackend)
	}
	switch c.PriceBase {
	case "regular", "sale":
	default:
		return fmt.Errorf("unknown PRICE_BASE %q", c.PriceBase)
	}
	if c.TaxRate.IsNegative() || c.FlatShipping.IsNegative() {
		return fmt.Errorf("TAX_RATE and FLAT_SHIPPING must not be negative")
	}
	return nil
}
