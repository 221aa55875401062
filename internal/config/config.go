package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" default:"dev"`
	Port     string `env:"PORT" default:"8080"`
	LogLevel string `env:"LOG_LEVEL" default:"info"`

	StateBackend string `env:"STATE_BACKEND" default:"memory"` // memory | mysql
	MySQLDSN     string `env:"DB_DSN" default:""`              // required when STATE_BACKEND=mysql

	// Optional: run migrations at startup (dev convenience)
	RunMigrations bool   `env:"RUN_MIGRATIONS" default:"false"`
	MigrationsDir string `env:"MIGRATIONS_DIR" default:"migrations"`

	// Shared secret for the admin endpoints, passed as ?key=.
	AdminSecret string `env:"ADMIN_SECRET" default:""`
	// PEM public key; enables Bearer tokens on admin endpoints when set.
	AdminJWTPublicKeyEnv string `env:"ADMIN_JWT_PUBLIC_KEY_ENV" default:"ADMIN_JWT_PUBLIC_KEY"`

	ImageAllowedHosts []string      `env:"IMAGE_ALLOWED_HOSTS"`
	ImageProxyTimeout time.Duration `env:"IMAGE_PROXY_TIMEOUT" default:"10s"`

	DefaultMinDiscount int `env:"DEFAULT_MIN_DISCOUNT" default:"50"`

	// Only honor X-Forwarded-For behind a proxy that sets it.
	TrustProxy bool `env:"TRUST_PROXY" default:"false"`

	DataDir        string `env:"DATA_DIR" default:"data"`
	ImportWorkers  int    `env:"IMPORT_WORKERS" default:"4"`
	ImportSchedule string `env:"IMPORT_SCHEDULE" default:""` // cron spec, empty disables
	IDMode         string `env:"ID_MODE" default:"source"`   // source | stable
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                  getenv("ENV", "dev"),
		Port:                 getenv("PORT", "8080"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		StateBackend:         getenv("STATE_BACKEND", "memory"),
		MySQLDSN:             getenv("DB_DSN", ""),
		RunMigrations:        getenv("RUN_MIGRATIONS", "false") == "true",
		MigrationsDir:        getenv("MIGRATIONS_DIR", "migrations"),
		AdminSecret:          getenv("ADMIN_SECRET", ""),
		AdminJWTPublicKeyEnv: getenv("ADMIN_JWT_PUBLIC_KEY_ENV", "ADMIN_JWT_PUBLIC_KEY"),
		ImageAllowedHosts:    splitList(getenv("IMAGE_ALLOWED_HOSTS", defaultImageHosts)),
		ImageProxyTimeout:    getduration("IMAGE_PROXY_TIMEOUT", 10*time.Second),
		DefaultMinDiscount:   getint("DEFAULT_MIN_DISCOUNT", 50),
		TrustProxy:           getenv("TRUST_PROXY", "false") == "true",
		DataDir:              getenv("DATA_DIR", "data"),
		ImportWorkers:        getint("IMPORT_WORKERS", 4),
		ImportSchedule:       getenv("IMPORT_SCHEDULE", ""),
		IDMode:               getenv("ID_MODE", "source"),
	}
	return cfg
}

const defaultImageHosts = "*.djaksport.com,*.planeta-sport.rs,*.sportvision.rs,*.n-sport.net,*.buzzsneakers.rs,*.officeshoes.rs,*.intersport.rs,*.tref-sport.com"

func getenv(key string, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getint(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
