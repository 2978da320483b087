package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string        `envconfig:"SPORTSHUB_APP_ENV" required:"true"`
	Port         string        `envconfig:"SPORTSHUB_APP_PORT" required:"true"`
	LogLevel     string        `envconfig:"SPORTSHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool          `envconfig:"SPORTSHUB_LOG_WARN_STACK" default:"false"`
	ReadTimeout  time.Duration `envconfig:"SPORTSHUB_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SPORTSHUB_HTTP_WRITE_TIMEOUT" default:"30s"`
	CORSOrigins  []string      `envconfig:"SPORTSHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SPORTSHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SPORTSHUB_DB_DSN"`
	Driver string `envconfig:"SPORTSHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPORTSHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"SPORTSHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPORTSHUB_DB_USER"`
	LegacyPassword string `envconfig:"SPORTSHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPORTSHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPORTSHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPORTSHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPORTSHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPORTSHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPORTSHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPORTSHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPORTSHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SPORTSHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPORTSHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPORTSHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPORTSHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPORTSHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPORTSHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPORTSHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies bearer tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"SPORTSHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPORTSHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SPORTSHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPORTSHUB_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"SPORTSHUB_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"SPORTSHUB_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SPORTSHUB_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"SPORTSHUB_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	PaymentsTopic            string `envconfig:"SPORTSHUB_PUBSUB_PAYMENTS_TOPIC" default:"sh-payment-events"`
	ReservationsTopic        string `envconfig:"SPORTSHUB_PUBSUB_RESERVATIONS_TOPIC" default:"sh-reservation-events"`
	NotificationTopic        string `envconfig:"SPORTSHUB_PUBSUB_NOTIFICATION_TOPIC" default:"sh-notification-events"`
	NotificationSubscription string `envconfig:"SPORTSHUB_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"sh-notification-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SPORTSHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SPORTSHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SPORTSHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"SPORTSHUB_OUTBOX_RETENTION_DAYS" default:"30"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"SPORTSHUB_STRIPE_API_KEY"`
	Secret   string `envconfig:"SPORTSHUB_STRIPE_SECRET"`
	Env      string `envconfig:"SPORTSHUB_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"SPORTSHUB_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CheckoutConfig tunes payment creation.
type CheckoutConfig struct {
	AmountTolerance string   `envconfig:"SPORTSHUB_CHECKOUT_AMOUNT_TOLERANCE" default:"0.001"`
	GatewayMethods  []string `envconfig:"SPORTSHUB_CHECKOUT_GATEWAY_METHODS" default:"card,credit_card,debit_card"`
}

// Tolerance parses AmountTolerance. Load has already validated it.
func (c CheckoutConfig) Tolerance() decimal.Decimal {
	tol, err := decimal.NewFromString(strings.TrimSpace(c.AmountTolerance))
	if err != nil {
		return decimal.RequireFromString("0.001")
	}
	return tol
}

func (c CheckoutConfig) validate() error {
	tol, err := decimal.NewFromString(strings.TrimSpace(c.AmountTolerance))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvCheckoutAmountTolerance, err)
	}
	if tol.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvCheckoutAmountTolerance)
	}
	return nil
}

// RateLimitConfig throttles payment endpoints per client IP and per user.
type RateLimitConfig struct {
	PaymentWindow    time.Duration `envconfig:"SPORTSHUB_RATE_LIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentIPLimit   int           `envconfig:"SPORTSHUB_RATE_LIMIT_PAYMENT_IP" default:"30"`
	PaymentUserLimit int           `envconfig:"SPORTSHUB_RATE_LIMIT_PAYMENT_USER" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SPORTSHUB_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
