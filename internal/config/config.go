package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSecret 未配置 APP_SECRET 时的占位密钥，生产环境禁止使用
const DefaultSecret = "your-secret-key-change-in-production"

// MinBcryptCost 密码哈希的最低成本
const MinBcryptCost = 12

// Config 应用配置
type Config struct {
	Env       string
	Port      string
	AppSecret string
	JWTExpiry time.Duration

	DBDriver    string
	DatabaseURL string
	BcryptCost  int

	OMDbAPIKey  string
	OMDbBaseURL string
	OMDbTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitMax        int
	RateLimitWindow     time.Duration
	LoginRateLimitMax   int
	SecretAttemptLimit  int
	SecretAttemptWindow time.Duration

	UploadDir       string
	UploadURLPrefix string
	MaxUploadBytes  int64

	ListRetention   time.Duration
	CleanupInterval time.Duration

	CORSOrigins    []string
	TrustedProxies []string
	LogLevel       string
	LogFormat      string
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load 从环境变量加载配置，数字格式错误时返回错误
func Load() (*Config, error) {
	p := &parser{}

	expiryHours := p.int("JWT_EXPIRY_HOURS", 168)
	driver := strings.ToLower(getEnv("DB_DRIVER", "postgres"))

	cfg := &Config{
		Env:       getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "5000"),
		AppSecret: getEnv("APP_SECRET", getEnv("JWT_SECRET", DefaultSecret)),
		JWTExpiry: time.Duration(expiryHours) * time.Hour,

		DBDriver:    driver,
		DatabaseURL: databaseURL(driver),
		BcryptCost:  p.int("BCRYPT_COST", MinBcryptCost),

		OMDbAPIKey:  getEnv("OMDB_API_KEY", ""),
		OMDbBaseURL: getEnv("OMDB_BASE_URL", "https://www.omdbapi.com"),
		OMDbTimeout: time.Duration(p.int("OMDB_TIMEOUT_SECONDS", 10)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),

		RateLimitMax:        p.int("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:     time.Duration(p.int("RATE_LIMIT_WINDOW_SECONDS", 900)) * time.Second,
		LoginRateLimitMax:   p.int("LOGIN_RATE_LIMIT_MAX", 10),
		SecretAttemptLimit:  p.int("SECRET_ATTEMPT_LIMIT", 5),
		SecretAttemptWindow: time.Duration(p.int("SECRET_ATTEMPT_WINDOW_MINUTES", 15)) * time.Minute,

		UploadDir:       getEnv("UPLOAD_DIR", "./uploads/profiles"),
		UploadURLPrefix: getEnv("UPLOAD_URL_PREFIX", "/uploads/profiles"),
		MaxUploadBytes:  int64(p.int("MAX_UPLOAD_MB", 5)) << 20,

		ListRetention:   time.Duration(p.int("LIST_RETENTION_DAYS", 30)) * 24 * time.Hour,
		CleanupInterval: time.Duration(p.int("CLEANUP_INTERVAL_HOURS", 24)) * time.Hour,

		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validate 检查启动所需的配置
func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && c.AppSecret == DefaultSecret {
		errs = append(errs, errors.New("APP_SECRET must be set in production"))
	}
	if c.AppSecret == "" {
		errs = append(errs, errors.New("APP_SECRET must not be empty"))
	}
	if c.BcryptCost < MinBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least %d", MinBcryptCost))
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_HOURS must be positive"))
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy))
		}
	}
	if c.ListRetention < 0 {
		errs = append(errs, errors.New("LIST_RETENTION_DAYS must not be negative"))
	}
	return errors.Join(errs...)
}

func databaseURL(driver string) string {
	if driver == "sqlite" {
		return getEnv("DB_PATH", "bingekaro.db")
	}
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "bingekaro")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)
}

func validProxy(v string) bool {
	if strings.Contains(v, "/") {
		_, _, err := net.ParseCIDR(v)
		return err == nil
	}
	return net.ParseIP(v) != nil
}

// parser 记录第一个格式错误
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%s: %q is not an integer", key, raw)
		}
		return defaultValue
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
