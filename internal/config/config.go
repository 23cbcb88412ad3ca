package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// ClinicTimezone is the single fixed timezone all appointment dates are
	// interpreted in, e.g. "Africa/Addis_Ababa".
	ClinicTimezone string

	// Scheduling
	SlotGranularityMinutes int
	DefaultDayStart        string
	DefaultDayEnd          string
	DefaultServiceMinutes  int
	ServiceDurationsJSON   string

	// SMS gateway
	SMSGatewayBaseURL  string
	SMSAPIKey          string
	SMSSenderCode      string
	SMSCountryCode     string
	SMSMaxRetries      int
	SMSRetryBaseDelay  time.Duration
	SMSRequestTimeout  time.Duration
	DispatchInterval   time.Duration
	ReminderBatchLimit int

	// Capability flags for optional schema pieces. Resolved once at startup;
	// a false flag makes the corresponding read degrade to its default
	// instead of failing per-call.
	HasOverridesTable bool
	HasOptOutColumn   bool

	AdminJWTSecret string

	// HTTP edge
	CORSAllowedOrigins []string
	PublicRateLimit    float64 // requests/sec per IP, 0 disables
	PublicRateBurst    int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Africa/Addis_Ababa"),

		SlotGranularityMinutes: getEnvAsInt("SLOT_GRANULARITY_MINUTES", 15),
		DefaultDayStart:        getEnv("DEFAULT_DAY_START", "09:00"),
		DefaultDayEnd:          getEnv("DEFAULT_DAY_END", "17:00"),
		DefaultServiceMinutes:  getEnvAsInt("DEFAULT_SERVICE_MINUTES", 60),
		ServiceDurationsJSON:   getEnv("SERVICE_DURATIONS_JSON", ""),

		SMSGatewayBaseURL:  getEnv("SMS_GATEWAY_BASE_URL", ""),
		SMSAPIKey:          getEnv("SMS_API_KEY", ""),
		SMSSenderCode:      getEnv("SMS_SENDER_CODE", ""),
		SMSCountryCode:     getEnv("SMS_COUNTRY_CODE", "251"),
		SMSMaxRetries:      getEnvAsInt("SMS_MAX_RETRIES", 2),
		SMSRetryBaseDelay:  getEnvAsDuration("SMS_RETRY_BASE_DELAY", 1*time.Second),
		SMSRequestTimeout:  getEnvAsDuration("SMS_REQUEST_TIMEOUT", 10*time.Second),
		DispatchInterval:   getEnvAsDuration("REMINDER_DISPATCH_INTERVAL", 15*time.Minute),
		ReminderBatchLimit: getEnvAsInt("REMINDER_BATCH_LIMIT", 100),

		HasOverridesTable: getEnvAsBool("HAS_OVERRIDES_TABLE", true),
		HasOptOutColumn:   getEnvAsBool("HAS_OPT_OUT_COLUMN", true),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		PublicRateLimit:    getEnvAsFloat("PUBLIC_RATE_LIMIT", 0),
		PublicRateBurst:    getEnvAsInt("PUBLIC_RATE_BURST", 20),
	}
}

// Location resolves the clinic timezone, falling back to UTC when the
// configured name is invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping empty entries
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
