package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Approvals     ApprovalsConfig
	Certificates  CertificatesConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ApprovalsConfig gates the approval queue and blotter numbering.
type ApprovalsConfig struct {
	Enabled              bool
	BlotterCasePrefix    string
	BlotterSequenceWidth int
	SingletonRoles       []string
}

// CertificatesConfig externalises certificate numbering, validity and QR signing.
type CertificatesConfig struct {
	Prefixes        map[string]string
	DefaultPrefix   string
	SequenceWidth   int
	Validity        map[string]time.Duration
	DefaultValidity time.Duration
	QRSecret        string
	VerifyBaseURL   string
	StorageDir      string
	LockTTL         time.Duration
	LockRetries     int
	LockBackoff     time.Duration
}

// PrefixFor returns the number prefix configured for a certificate type.
func (c CertificatesConfig) PrefixFor(certificateType string) string {
	if prefix, ok := c.Prefixes[TypeKey(certificateType)]; ok && prefix != "" {
		return prefix
	}
	return c.DefaultPrefix
}

// ValidityFor returns the validity window configured for a certificate type.
func (c CertificatesConfig) ValidityFor(certificateType string) time.Duration {
	if d, ok := c.Validity[TypeKey(certificateType)]; ok && d > 0 {
		return d
	}
	return c.DefaultValidity
}

// NotificationsConfig tunes the notification delivery queue.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	Channel    string
}

// TypeKey normalises a certificate type label ("Barangay Clearance") into its
// configuration key ("barangay_clearance").
func TypeKey(label string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(label)))
	return strings.Join(fields, "_")
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	blotterWidth := v.GetInt("BLOTTER_SEQUENCE_WIDTH")
	if blotterWidth <= 0 {
		blotterWidth = 4
	}
	cfg.Approvals = ApprovalsConfig{
		Enabled:              v.GetBool("ENABLE_APPROVALS"),
		BlotterCasePrefix:    v.GetString("BLOTTER_CASE_PREFIX"),
		BlotterSequenceWidth: blotterWidth,
		SingletonRoles:       upperAll(splitAndTrim(v.GetString("SINGLETON_ROLES"))),
	}

	certWidth := v.GetInt("CERT_SEQUENCE_WIDTH")
	if certWidth <= 0 {
		certWidth = 4
	}
	cfg.Certificates = CertificatesConfig{
		Prefixes:        parseKeyValues(v.GetString("CERT_NUMBER_PREFIXES")),
		DefaultPrefix:   v.GetString("CERT_DEFAULT_PREFIX"),
		SequenceWidth:   certWidth,
		Validity:        parseDurations(v.GetString("CERT_VALIDITY")),
		DefaultValidity: parseDuration(v.GetString("CERT_DEFAULT_VALIDITY"), 180*24*time.Hour),
		QRSecret:        v.GetString("CERT_QR_SECRET"),
		VerifyBaseURL:   v.GetString("CERT_VERIFY_BASE_URL"),
		StorageDir:      v.GetString("CERT_STORAGE_DIR"),
		LockTTL:         parseDuration(v.GetString("CERT_LOCK_TTL"), 10*time.Second),
		LockRetries:     v.GetInt("CERT_LOCK_RETRIES"),
		LockBackoff:     parseDuration(v.GetString("CERT_LOCK_BACKOFF"), 100*time.Millisecond),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER"),
		MaxRetries: v.GetInt("NOTIFY_RETRIES"),
		Channel:    v.GetString("NOTIFY_CHANNEL"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "barangay_records")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "barangay-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_APPROVALS", true)
	v.SetDefault("BLOTTER_CASE_PREFIX", "BLT")
	v.SetDefault("BLOTTER_SEQUENCE_WIDTH", 4)
	v.SetDefault("SINGLETON_ROLES", "CAPTAIN,SK_CHAIRPERSON")

	v.SetDefault("CERT_NUMBER_PREFIXES", "barangay_clearance=BC,certificate_of_residency=COR,certificate_of_indigency=COI,business_clearance=BPC")
	v.SetDefault("CERT_DEFAULT_PREFIX", "CERT")
	v.SetDefault("CERT_SEQUENCE_WIDTH", 4)
	v.SetDefault("CERT_VALIDITY", "barangay_clearance=4320h,certificate_of_residency=4320h,certificate_of_indigency=2160h,business_clearance=8760h")
	v.SetDefault("CERT_DEFAULT_VALIDITY", "4320h")
	v.SetDefault("CERT_QR_SECRET", "dev_qr_secret")
	v.SetDefault("CERT_VERIFY_BASE_URL", "http://localhost:8080/api/v1/verify")
	v.SetDefault("CERT_STORAGE_DIR", "./certificates")
	v.SetDefault("CERT_LOCK_TTL", "10s")
	v.SetDefault("CERT_LOCK_RETRIES", 50)
	v.SetDefault("CERT_LOCK_BACKOFF", "100ms")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 64)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_CHANNEL", "barangay:notifications")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func upperAll(values []string) []string {
	for i, value := range values {
		values[i] = strings.ToUpper(value)
	}
	return values
}

// parseKeyValues reads "a=x,b=y" pairs; keys are normalised with TypeKey.
func parseKeyValues(raw string) map[string]string {
	result := make(map[string]string)
	for _, pair := range splitAndTrim(raw) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = TypeKey(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}

// parseDurations drops entries that are malformed or non-positive.
func parseDurations(raw string) map[string]time.Duration {
	result := make(map[string]time.Duration)
	for key, value := range parseKeyValues(raw) {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			continue
		}
		result[key] = d
	}
	return result
}
