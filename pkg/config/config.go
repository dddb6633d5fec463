package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	POS          POSConfig
	Pickup       PickupConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"BOPIS_APP_ENV" required:"true"`
	Port         string `envconfig:"BOPIS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOPIS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOPIS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOPIS_DB_DSN"`
	Driver string `envconfig:"BOPIS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOPIS_DB_HOST"`
	LegacyPort     int    `envconfig:"BOPIS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOPIS_DB_USER"`
	LegacyPassword string `envconfig:"BOPIS_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOPIS_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOPIS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOPIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOPIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOPIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOPIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOPIS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOPIS_REDIS_ADDR"`
	Password     string        `envconfig:"BOPIS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOPIS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOPIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOPIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOPIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOPIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOPIS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOPIS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOPIS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOPIS_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BOPIS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOPIS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOPIS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOPIS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOPIS_ARGON_KEY_LEN" default:"32"`
}

type POSConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BOPIS_POS_IDEMPOTENCY_TTL" default:"24h"`
}

type PickupConfig struct {
	DefaultSlotCapacity int `envconfig:"BOPIS_PICKUP_DEFAULT_SLOT_CAPACITY" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOPIS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOPIS_AUTO_MIGRATE" default:"false"`
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
