package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Paystack      PaystackConfig
	Orders        OrdersConfig
	Uploads       UploadsConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THRIFTLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"THRIFTLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THRIFTLANE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"THRIFTLANE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"THRIFTLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THRIFTLANE_DB_DSN"`
	Driver string `envconfig:"THRIFTLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THRIFTLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"THRIFTLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THRIFTLANE_DB_USER"`
	LegacyPassword string `envconfig:"THRIFTLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"THRIFTLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"THRIFTLANE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"THRIFTLANE_SQLITE_PATH" default:"thriftlane.db"`

	MaxOpenConns    int           `envconfig:"THRIFTLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THRIFTLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THRIFTLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THRIFTLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"THRIFTLANE_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THRIFTLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THRIFTLANE_REDIS_ADDR"`
	Password     string        `envconfig:"THRIFTLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"THRIFTLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THRIFTLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THRIFTLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THRIFTLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THRIFTLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THRIFTLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THRIFTLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THRIFTLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THRIFTLANE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"THRIFTLANE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"THRIFTLANE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"THRIFTLANE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"THRIFTLANE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"THRIFTLANE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"THRIFTLANE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"THRIFTLANE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"THRIFTLANE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"THRIFTLANE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"THRIFTLANE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"THRIFTLANE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"THRIFTLANE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"THRIFTLANE_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"THRIFTLANE_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL       string        `envconfig:"THRIFTLANE_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	VerifyTimeout time.Duration `envconfig:"THRIFTLANE_PAYSTACK_VERIFY_TIMEOUT" default:"10s"`
	WebhookTTL    time.Duration `envconfig:"THRIFTLANE_PAYSTACK_WEBHOOK_DEDUP_TTL" default:"72h"`
}

type OrdersConfig struct {
	DefaultCurrency string `envconfig:"THRIFTLANE_ORDERS_DEFAULT_CURRENCY" default:"NGN"`
	// AmountPolicy decides how a verified transaction amount is spread across order lines.
	AmountPolicy string `envconfig:"THRIFTLANE_RECONCILE_AMOUNT_POLICY" default:"transaction"`
}

func (o OrdersConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.AmountPolicy)) {
	case AmountPolicyTransaction, AmountPolicySplit:
		return nil
	default:
		return fmt.Errorf("%s must be one of %q, %q", EnvAmountPolicy, AmountPolicyTransaction, AmountPolicySplit)
	}
}

type UploadsConfig struct {
	Dir          string `envconfig:"THRIFTLANE_UPLOADS_DIR" default:"uploads"`
	PublicPrefix string `envconfig:"THRIFTLANE_UPLOADS_PUBLIC_PREFIX" default:"/uploads"`
	MaxUploadMB  int    `envconfig:"THRIFTLANE_MAX_UPLOAD_MB" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"THRIFTLANE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
