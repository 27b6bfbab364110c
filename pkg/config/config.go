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
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Sentry        SentryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MOZZ_APP_ENV" required:"true"`
	Port         string   `envconfig:"MOZZ_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"MOZZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MOZZ_LOG_WARN_STACK" default:"false"`
	PublicURL    string   `envconfig:"MOZZ_PUBLIC_URL"`
	CORSOrigins  []string `envconfig:"MOZZ_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// WebOrigin is the web client origin used for CORS and invitation links.
func (a AppConfig) WebOrigin() string {
	if a.IsProd() {
		return ProdWebOrigin
	}
	return DevWebOrigin
}

// AllowedOrigins returns the configured CORS origins, falling back to WebOrigin.
func (a AppConfig) AllowedOrigins() []string {
	if len(a.CORSOrigins) > 0 {
		return a.CORSOrigins
	}
	return []string{a.WebOrigin()}
}

// LinkBaseURL is the base for redirect URLs embedded in invitation links.
func (a AppConfig) LinkBaseURL() string {
	base := strings.TrimSpace(a.PublicURL)
	if base == "" {
		base = a.WebOrigin()
	}
	return strings.TrimRight(base, "/")
}

type DBConfig struct {
	DSN    string `envconfig:"MOZZ_DB_DSN"`
	Driver string `envconfig:"MOZZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOZZ_DB_HOST"`
	LegacyPort     int    `envconfig:"MOZZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOZZ_DB_USER"`
	LegacyPassword string `envconfig:"MOZZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOZZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOZZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOZZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOZZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOZZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOZZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MOZZ_REDIS_URL"`
	Address      string        `envconfig:"MOZZ_REDIS_ADDR"`
	Password     string        `envconfig:"MOZZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOZZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOZZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOZZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOZZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOZZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOZZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MOZZ_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MOZZ_JWT_ISSUER" default:"mozz"`
	ExpirationMinutes      int    `envconfig:"MOZZ_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"MOZZ_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the session lifetime configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MOZZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MOZZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MOZZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MOZZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MOZZ_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"MOZZ_PASSWORD_MIN_LENGTH" default:"6"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"MOZZ_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"MOZZ_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"MOZZ_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"MOZZ_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"MOZZ_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"MOZZ_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOZZ_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MOZZ_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MOZZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MOZZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InvitationTopic string `envconfig:"MOZZ_PUBSUB_INVITATION_TOPIC" default:"mozz-invitation-links"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"MOZZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"MOZZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int `envconfig:"MOZZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int `envconfig:"MOZZ_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"MOZZ_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

// PollInterval returns the configured poll interval.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MOZZ_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"MOZZ_CRON_LOCK_TTL" default:"1h"`
}

type SentryConfig struct {
	DSN              string  `envconfig:"MOZZ_SENTRY_DSN"`
	Environment      string  `envconfig:"MOZZ_SENTRY_ENVIRONMENT"`
	TracesSampleRate float64 `envconfig:"MOZZ_SENTRY_TRACES_SAMPLE_RATE" default:"0"`
}

func (s SentryConfig) Enabled() bool {
	return strings.TrimSpace(s.DSN) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
