package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port       string
	APIVersion string
	LogLevel   string

	DatabaseURL string
	Storage     StorageConfig
	Verify      VerifyConfig
	Sweep       SweepConfig

	UpstreamTimeout time.Duration
	// AuthSecret verifies admin tokens.
	AuthSecret string
	// AuthTrustGateway reads admin tokens unverified when AuthSecret is empty.
	AuthTrustGateway bool

	AllowedOrigins []string
}

type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	BucketName      string
	// PublicURL is the prefix, bucket included, under which objects are
	// publicly readable. Defaults to <endpoint>/<bucket>.
	PublicURL string
}

// Configured reports whether enough is set to talk to the object store.
func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

type VerifyConfig struct {
	RedisURL    string
	MaxAttempts int
	Window      time.Duration
}

type SweepConfig struct {
	Schedule string
	Grace    time.Duration
}

// Load reads the environment (and an optional .env file) into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "1337"),
		APIVersion:  getEnv("APP_VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getDatabaseURL(),
		Storage: StorageConfig{
			Endpoint:        os.Getenv("STORAGE_ENDPOINT"),
			AccessKeyID:     os.Getenv("STORAGE_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("STORAGE_SECRET_KEY"),
			UseSSL:          getBool("STORAGE_USE_SSL", true),
			Region:          os.Getenv("STORAGE_REGION"),
			BucketName:      getEnv("STORAGE_BUCKET", "fileflow"),
			PublicURL:       os.Getenv("STORAGE_PUBLIC_URL"),
		},
		Verify: VerifyConfig{
			RedisURL:    os.Getenv("REDIS_URL"),
			MaxAttempts: getInt("VERIFY_MAX_ATTEMPTS", 10),
			Window:      getDuration("VERIFY_WINDOW", 15*time.Minute),
		},
		Sweep: SweepConfig{
			Schedule: sweepSchedule(),
			Grace:    getDuration("ORPHAN_SWEEP_GRACE", time.Hour),
		},
		UpstreamTimeout:  getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		AuthSecret:       os.Getenv("AUTH_JWT_SECRET"),
		AuthTrustGateway: getBool("AUTH_TRUST_GATEWAY", false),
		AllowedOrigins:   getList("CORS_ALLOWED_ORIGINS"),
	}
}

func getDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if os.Getenv("DB_HOSTNAME") == "" {
		return ""
	}

	dsn := "postgres://" +
		os.Getenv("DB_USERNAME") + ":" +
		os.Getenv("DB_PASSWORD") + "@" +
		os.Getenv("DB_HOSTNAME") + "/" +
		os.Getenv("DB_DBNAME")
	if schema := os.Getenv("DB_SCHEMA"); schema != "" {
		dsn += "?search_path=" + schema
	}
	return dsn
}

// sweepSchedule returns "" when the sweep is switched off.
func sweepSchedule() string {
	schedule := getEnv("ORPHAN_SWEEP_SCHEDULE", "@daily")
	if strings.EqualFold(schedule, "off") {
		return ""
	}
	return schedule
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
		log.Warnf("ignoring invalid %s=%q", key, val)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
		log.Warnf("ignoring invalid %s=%q", key, val)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
		log.Warnf("ignoring invalid %s=%q", key, val)
	}
	return defaultValue
}
