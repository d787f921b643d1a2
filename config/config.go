package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "checkout-service/pkg/aws"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	StoreName           string
	FrontendURL         string
	AllowedOrigins      []string

	MailProvider   string
	MailTimeout    time.Duration
	SendGridAPIKey string
	SendGridHost   string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	EmailUser      string // sender address
	EmailFromName  string
	AdminEmail     string

	RedisURL            string
	ProcessedSessionTTL time.Duration

	OrderEventsTopicARN string
	UseAWSSecrets       bool
	CheckoutSecretID    string
	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	MetricsNamespace    string
}

// SecretsSource resolves a JSON secret into key/value pairs.
type SecretsSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// secretKeys are the settings that may be supplied by Secrets Manager.
var secretKeys = []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "SENDGRID_API_KEY", "SMTP_PASS"}

// LoadConfig reads .env (when present) and the environment, then overlays
// secrets from AWS Secrets Manager when AWS_USE_SECRETS is set.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseAWSSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "4242"),
		Env:                 getEnv("ENV", "development"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(getEnv("CURRENCY", "eur")),
		StoreName:           getEnv("STORE_NAME", "Mama Food's"),
		FrontendURL:         os.Getenv("FRONTEND_URL"),
		MailProvider:        strings.ToLower(getEnv("MAIL_PROVIDER", "sendgrid")),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		SendGridHost:        os.Getenv("SENDGRID_HOST"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPUser:            os.Getenv("SMTP_USER"),
		SMTPPass:            os.Getenv("SMTP_PASS"),
		EmailUser:           os.Getenv("EMAIL_USER"),
		AdminEmail:          os.Getenv("ADMIN_EMAIL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		CheckoutSecretID:    getEnv("CHECKOUT_SECRET_ID", "checkout-service/secrets"),
		CloudWatchLogGroup:  os.Getenv("CLOUDWATCH_LOG_GROUP"),
		MetricsNamespace:    getEnv("METRICS_NAMESPACE", "Checkout"),
	}
	cfg.EmailFromName = getEnv("EMAIL_FROM_NAME", cfg.StoreName)
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", cfg.FrontendURL))

	var err error
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.MailTimeout, err = getDuration("MAIL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProcessedSessionTTL, err = getDuration("PROCESSED_SESSION_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UseAWSSecrets, err = getBool("AWS_USE_SECRETS", false); err != nil {
		return nil, err
	}
	if cfg.CloudWatchEnabled, err = getBool("CLOUDWATCH_ENABLED", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplySecrets overwrites secret settings with the values stored under
// CheckoutSecretID. Keys absent from the secret keep their current value.
func (c *Config) ApplySecrets(ctx context.Context, src SecretsSource) error {
	values, err := src.GetSecretMap(ctx, c.CheckoutSecretID)
	if err != nil {
		return fmt.Errorf("load secret %s: %w", c.CheckoutSecretID, err)
	}
	applySecrets(c, values)
	return nil
}

func applySecrets(c *Config, values map[string]string) {
	targets := map[string]*string{
		"STRIPE_SECRET_KEY":     &c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": &c.StripeWebhookSecret,
		"SENDGRID_API_KEY":      &c.SendGridAPIKey,
		"SMTP_PASS":             &c.SMTPPass,
	}
	for _, key := range secretKeys {
		if v := strings.TrimSpace(values[key]); v != "" {
			*targets[key] = v
		}
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("STRIPE_SECRET_KEY", c.StripeSecretKey)
	require("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
	require("FRONTEND_URL", c.FrontendURL)
	require("EMAIL_USER", c.EmailUser)
	require("ADMIN_EMAIL", c.AdminEmail)

	switch c.MailProvider {
	case "sendgrid":
		require("SENDGRID_API_KEY", c.SendGridAPIKey)
	case "gmail", "brevo", "smtp":
		require("SMTP_USER", c.SMTPUser)
		require("SMTP_PASS", c.SMTPPass)
		if c.MailProvider == "smtp" {
			require("SMTP_HOST", c.SMTPHost)
		}
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.MailProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsProduction selects the JSON logger and gin release mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	return out
}
