package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string `env:"PORT,default=5000"`
	GinMode string `env:"GIN_MODE,default=debug"`

	DBDriver    string `env:"DB_DRIVER,default=postgres"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	JWTSecret        string        `env:"JWT_SECRET,default=changeme"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,default=changeme-refresh"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,default=15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`
	BcryptCost       int           `env:"BCRYPT_COST,default=12"`

	AllowedOrigins  string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	UploadDir       string `env:"UPLOAD_DIR,default=./uploads"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL,default=http://localhost:5000"`
	FrontendBaseURL string `env:"FRONTEND_BASE_URL,default=http://localhost:3000"`

	RedisURL string `env:"REDIS_URL"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE,default=false"`

	AdminName     string `env:"ADMIN_NAME,default=Admin"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDSN(cfg.DBDriver)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultDSN(driver string) string {
	if driver == "sqlite" {
		return "scanndine.db"
	}
	return "host=localhost user=postgres password=postgres dbname=scanndine port=5432 sslmode=disable"
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
