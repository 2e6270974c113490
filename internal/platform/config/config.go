package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config is the full runtime configuration of the API server.
type Config struct {
	Port        int
	APIPrefix   string
	CORSOrigin  string
	Environment string

	LogLevel  string
	LogFormat string

	// AuthDisabled bypasses token verification and runs every request as the
	// local placeholder identity.
	AuthDisabled bool
	JWT          JWTConfig
	// AdminGroups may call operator routes such as GET /admin/bookings.
	AdminGroups []string

	StorageBackend string
	DatabaseURL    string
	RedisAddr      string
	IdempotencyTTL time.Duration

	UseLambda                bool
	AWSRegion                string
	HealthLambdaFunctionName string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("ENVIRONMENT", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("AUTH_DISABLED", "false")
	v.SetDefault("COGNITO_REGION", "il-central-1")
	v.SetDefault("JWT_CLOCK_SKEW", "30s")
	// Refresh periodically to pick up key rotation even if an old key is still cached.
	v.SetDefault("JWT_JWKS_REFRESH_INTERVAL", "5m")
	// Bound refresh frequency when a token presents an unknown kid.
	v.SetDefault("JWT_JWKS_MIN_REFRESH_INTERVAL", "10s")
	v.SetDefault("JWT_HTTP_TIMEOUT", "5s")
	v.SetDefault("ADMIN_GROUPS", "admins")

	v.SetDefault("STORAGE_BACKEND", StorageMemory)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")

	v.SetDefault("USE_LAMBDA", "false")
	v.SetDefault("HEALTH_LAMBDA_FUNCTION_NAME", "charging-stations-health")
}

// Load reads configuration from the environment, falling back to envFile
// (dotenv format) and then to defaults. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var err error
	cfg := Config{
		APIPrefix:                normalizePrefix(v.GetString("API_PREFIX")),
		CORSOrigin:               strings.TrimSpace(v.GetString("CORS_ORIGIN")),
		Environment:              strings.ToLower(strings.TrimSpace(v.GetString("ENVIRONMENT"))),
		LogLevel:                 strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:                strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		AdminGroups:              splitList(v.GetString("ADMIN_GROUPS")),
		StorageBackend:           strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		DatabaseURL:              strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:                strings.TrimSpace(v.GetString("REDIS_ADDR")),
		HealthLambdaFunctionName: strings.TrimSpace(v.GetString("HEALTH_LAMBDA_FUNCTION_NAME")),
		JWT: JWTConfig{
			Region:     strings.TrimSpace(v.GetString("COGNITO_REGION")),
			UserPoolID: strings.TrimSpace(v.GetString("COGNITO_USER_POOL_ID")),
			ClientID:   strings.TrimSpace(v.GetString("COGNITO_CLIENT_ID")),
			Endpoint:   strings.TrimSpace(v.GetString("COGNITO_ENDPOINT")),
		},
	}

	if cfg.Port, err = strconv.Atoi(strings.TrimSpace(v.GetString("PORT"))); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be a TCP port number, got %q", v.GetString("PORT"))
	}
	if cfg.AuthDisabled, err = readBool(v, "AUTH_DISABLED"); err != nil {
		return Config{}, err
	}
	if cfg.UseLambda, err = readBool(v, "USE_LAMBDA"); err != nil {
		return Config{}, err
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_CLOCK_SKEW", &cfg.JWT.ClockSkew},
		{"JWT_JWKS_REFRESH_INTERVAL", &cfg.JWT.JWKSRefreshInterval},
		{"JWT_JWKS_MIN_REFRESH_INTERVAL", &cfg.JWT.JWKSMinRefreshInterval},
		{"JWT_HTTP_TIMEOUT", &cfg.JWT.HTTPTimeout},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(v.GetString(d.key))
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a duration (e.g. 30s): %w", d.key, err)
		}
		*d.dst = parsed
	}

	cfg.AWSRegion = strings.TrimSpace(v.GetString("AWS_REGION"))
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = cfg.JWT.Region
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules.
func (c Config) Validate() error {
	if c.AuthDisabled && c.Environment == "production" {
		return errors.New("AUTH_DISABLED cannot be enabled when ENVIRONMENT=production")
	}
	if !c.AuthDisabled {
		if err := c.JWT.Validate(); err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
	}
	if len(c.AdminGroups) == 0 {
		return errors.New("ADMIN_GROUPS must name at least one group")
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected memory|postgres|redis)", c.StorageBackend)
	}
	if c.UseLambda && c.HealthLambdaFunctionName == "" {
		return errors.New("HEALTH_LAMBDA_FUNCTION_NAME is required when USE_LAMBDA is set")
	}
	return nil
}

// Redacted returns a copy safe to print: credentials in connection strings are masked.
func (c Config) Redacted() Config {
	out := c
	out.AdminGroups = append([]string(nil), c.AdminGroups...)
	if c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err == nil && u.User != nil {
			if _, has := u.User.Password(); has {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
			}
			out.DatabaseURL = u.String()
		} else if err != nil {
			out.DatabaseURL = "<unparseable>"
		}
	}
	return out
}

var truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "on": true}
var falsy = map[string]bool{"0": true, "false": true, "no": true, "n": true, "off": true, "": true}

func readBool(v *viper.Viper, key string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(v.GetString(key)))
	switch {
	case truthy[raw]:
		return true, nil
	case falsy[raw]:
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean (true/false/1/0/yes/no/on/off), got %q", key, raw)
	}
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
