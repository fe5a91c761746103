// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	Port           string
	AllowedOrigins []string
	LogMode        string

	DatabaseURL       string
	SupabaseJWTSecret string

	PaystackSecretKey     string
	PaystackPublicKey     string
	PaystackWebhookSecret string
	PaystackBaseURL       string
	ActivationFeeMinor    int64
	ActivationCurrency    string
	PayoutCurrency        string

	UnverifiedTTL       time.Duration
	SweepInterval       time.Duration
	ReconcileInterval   time.Duration
	ProfileFetchTimeout time.Duration

	PersistAllResponses bool
	MaxResponseWords    int

	RedisAddr    string
	ServiceToken string

	R2 R2Config
}

// R2Config configures the Cloudflare R2 bucket used for logos and ticket attachments.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether uploads can be served.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.Bucket != ""
}

// Load reads the environment. Call godotenv.Load first if a .env file should be honored.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    SafeEnv("PORT", "5200"),
		LogMode: SafeEnv("LOG_MODE", "dev"),

		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseJWTSecret: strings.TrimSpace(os.Getenv("SUPABASE_JWT_SECRET")),

		PaystackSecretKey:  strings.TrimSpace(os.Getenv("PAYSTACK_SECRET_KEY")),
		PaystackPublicKey:  strings.TrimSpace(os.Getenv("PAYSTACK_PUBLIC_KEY")),
		PaystackBaseURL:    strings.TrimRight(SafeEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),
		ActivationFeeMinor: Int64("ACTIVATION_FEE_MINOR", 500000),
		ActivationCurrency: strings.ToUpper(SafeEnv("ACTIVATION_CURRENCY", "NGN")),
		PayoutCurrency:     strings.ToUpper(SafeEnv("PAYOUT_CURRENCY", "USD")),

		UnverifiedTTL:       Duration("UNVERIFIED_TTL", 48*time.Hour),
		SweepInterval:       Duration("SWEEP_INTERVAL", time.Hour),
		ReconcileInterval:   Duration("RECONCILE_INTERVAL", 5*time.Minute),
		ProfileFetchTimeout: Duration("PROFILE_FETCH_TIMEOUT", 4*time.Second),

		PersistAllResponses: Bool("PERSIST_ALL_RESPONSES", false),
		MaxResponseWords:    int(Int64("MAX_RESPONSE_WORDS", 50)),

		RedisAddr:    strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		ServiceToken: strings.TrimSpace(os.Getenv("SERVICE_TOKEN")),

		R2: R2Config{
			AccountID:       strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCOUNT_ID")),
			AccessKeyID:     strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_ID")),
			AccessKeySecret: strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_SECRET")),
			Bucket:          strings.TrimSpace(os.Getenv("R2_BUCKET_NAME")),
			CDNBaseURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("CDN_BASE_URL")), "/"),
		},
	}

	cfg.PaystackWebhookSecret = SafeEnv("PAYSTACK_WEBHOOK_SECRET", cfg.PaystackSecretKey)
	cfg.AllowedOrigins = SplitList(SafeEnv("ALLOWED_ORIGINS", "http://localhost:3000"))

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.SupabaseJWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if cfg.PaystackSecretKey == "" {
		missing = append(missing, "PAYSTACK_SECRET_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if cfg.MaxResponseWords <= 0 {
		return nil, errors.New("MAX_RESPONSE_WORDS must be positive")
	}
	return cfg, nil
}

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func Int64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func Bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SplitList splits a comma-separated value and drops blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
