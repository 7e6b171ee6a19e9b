package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// Config returns the value of an environment variable, loading .env on first use.
func Config(key string) string {
	loadOnce.Do(func() {
		// A missing .env is fine, the process environment still applies.
		_ = godotenv.Load()
	})
	return strings.TrimSpace(os.Getenv(key))
}

// Settings is the typed view of the service configuration.
type Settings struct {
	ServerPort string
	AppEnv     string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       []int

	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQEnabled  bool
	EventMode        string
	EventLogDir      string
	EventTarget      string
	EventInbound     string

	JWTAccessKey     string
	JWTAccessExpire  int
	JWTRefreshKey    string
	JWTRefreshExpire int

	OtpIssuer     string
	RBACModelPath string
}

// Load reads Settings with defaults for everything that has a sensible one.
func Load() Settings {
	return Settings{
		ServerPort: withDefault("SERVER_PORT", "8080"),
		AppEnv:     withDefault("APP_ENV", "production"),
		LogLevel:   withDefault("LOG_LEVEL", "info"),

		PostgresHost:     withDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     withDefault("POSTGRES_PORT", "5432"),
		PostgresUser:     Config("POSTGRES_USER"),
		PostgresPassword: Config("POSTGRES_PASSWORD"),
		PostgresDB:       withDefault("POSTGRES_DB", "messenger"),
		PostgresSSLMode:  withDefault("POSTGRES_SSLMODE", "disable"),

		RedisHost:     withDefault("REDIS_HOST", "localhost"),
		RedisPort:     withDefault("REDIS_PORT", "6379"),
		RedisPassword: Config("REDIS_PASSWORD"),
		RedisDB:       intList("REDIS_DB", []int{0, 1, 2}),

		RabbitMQHost:     withDefault("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     withDefault("RABBITMQ_PORT", "5672"),
		RabbitMQUser:     withDefault("RABBITMQ_USER", "guest"),
		RabbitMQPassword: withDefault("RABBITMQ_PASSWORD", "guest"),
		RabbitMQEnabled:  boolValue("RABBITMQ_ENABLED", true),
		EventMode:        withDefault("EVENT_MODE", "DISABLE"),
		EventLogDir:      withDefault("EVENT_LOG_DIR", "log"),
		EventTarget:      withDefault("EVENT_TARGET_QUEUE", "backoffice"),
		EventInbound:     withDefault("EVENT_INBOUND_QUEUE", "api"),

		JWTAccessKey:     Config("JWT_ACCESS_KEY"),
		JWTAccessExpire:  intValue("JWT_ACCESS_EXPIRE", 15),
		JWTRefreshKey:    Config("JWT_REFRESH_KEY"),
		JWTRefreshExpire: intValue("JWT_REFRESH_EXPIRE", 60*24*7),

		OtpIssuer:     withDefault("OTP_ISSUER", "lise-messenger"),
		RBACModelPath: withDefault("RBAC_MODEL_PATH", "config/restful_rbac_model.conf"),
	}
}

// Development reports whether the service runs with developer ergonomics (console logs).
func (s Settings) Development() bool {
	switch strings.ToLower(s.AppEnv) {
	case "dev", "development", "local":
		return true
	}
	return false
}

func withDefault(key, def string) string {
	if v := Config(key); v != "" {
		return v
	}
	return def
}

func intValue(key string, def int) int {
	n, err := strconv.Atoi(Config(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func boolValue(key string, def bool) bool {
	b, err := strconv.ParseBool(Config(key))
	if err != nil {
		return def
	}
	return b
}

func intList(key string, def []int) []int {
	raw := Config(key)
	if raw == "" {
		return def
	}
	out := make([]int, 0, 3)
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
