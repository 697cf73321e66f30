package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIServerConfig holds configuration specific to the API server.
type APIServerConfig struct {
	Host string     `mapstructure:"HOST"`
	Port string     `mapstructure:"PORT"`
	CORS CORSConfig `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	Server     ServerConfig    `mapstructure:"SERVER"` // notify server (websocket push)
	APIServer  APIServerConfig `mapstructure:"API_SERVER"`
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	Quota      QuotaConfig     `mapstructure:"QUOTA"`
	Tiers      TierMap         `mapstructure:"TIERS"`
}

// ServerConfig holds configuration for the notify server's HTTP listener.
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"BROKERS"`
	ClientID          string   `mapstructure:"CLIENT_ID"`
	MatchEventsTopic  string   `mapstructure:"MATCH_EVENTS_TOPIC"`  // match-created events for the notify server
	ChatMessagesTopic string   `mapstructure:"CHAT_MESSAGES_TOPIC"` // message events from the chat collaborator
	ConsumerGroup     string   `mapstructure:"CONSUMER_GROUP"`
	NotifyGroup       string   `mapstructure:"NOTIFY_GROUP"`
	Protocol          string   `mapstructure:"PROTOCOL"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// AuthConfig holds configuration for authentication (JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
}

// QuotaConfig holds the daily-quota and transaction-retry policy.
type QuotaConfig struct {
	// Timezone is the IANA zone that fixes the day boundary for quota
	// resets. The boundary is decided server-side, never by client clocks.
	Timezone string `mapstructure:"TIMEZONE"`

	// UnlimitedThreshold: a tier whose daily limit is at or above this
	// value bypasses quota enforcement entirely.
	UnlimitedThreshold int `mapstructure:"UNLIMITED_THRESHOLD"`

	// TxRetryAttempts and TxRetryBackoff bound the internal retry of the
	// atomic swipe transaction on transient storage conflicts.
	TxRetryAttempts int           `mapstructure:"TX_RETRY_ATTEMPTS"`
	TxRetryBackoff  time.Duration `mapstructure:"TX_RETRY_BACKOFF"`
}

// TierConfig maps a subscription tier to its capabilities. Capability
// checks go through this mapping, never through tier-name comparisons.
type TierConfig struct {
	DailyLimit    int           `mapstructure:"DAILY_LIMIT"`
	Boost         bool          `mapstructure:"BOOST"`
	BoostDuration time.Duration `mapstructure:"BOOST_DURATION"`
}

// TierMap maps tier identifiers to their capabilities.
type TierMap map[string]TierConfig

// Lookup returns the capabilities for tier, falling back to the "free"
// tier when the identifier is unknown.
func (t TierMap) Lookup(tier string) (TierConfig, bool) {
	if tc, ok := t[tier]; ok {
		return tc, true
	}
	tc, ok := t["free"]
	return tc, ok
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "Match-Go")
	v.SetDefault("APP_VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "info")

	// Notify server defaults
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB

	// API server defaults
	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "8081")
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300) // 5 minutes

	// Kafka defaults
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "match-go-client")
	v.SetDefault("KAFKA.MATCH_EVENTS_TOPIC", "match-events")
	v.SetDefault("KAFKA.CHAT_MESSAGES_TOPIC", "chat-messages")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "match-go-api-group")
	v.SetDefault("KAFKA.NOTIFY_GROUP", "match-go-notify-group")

	// Database defaults (PostgreSQL)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "match_go_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	// Auth defaults
	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 15*time.Minute)

	// Redis defaults
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	// WebSocket defaults
	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 512)

	// Quota defaults
	v.SetDefault("QUOTA.TIMEZONE", "UTC")
	v.SetDefault("QUOTA.UNLIMITED_THRESHOLD", 1000)
	v.SetDefault("QUOTA.TX_RETRY_ATTEMPTS", 3)
	v.SetDefault("QUOTA.TX_RETRY_BACKOFF", 50*time.Millisecond)

	// Tier defaults. Deployments override this map with their own plans.
	v.SetDefault("TIERS", map[string]TierConfig{
		"free":    {DailyLimit: 20, Boost: false},
		"plus":    {DailyLimit: 100, Boost: true, BoostDuration: 30 * time.Minute},
		"premium": {DailyLimit: 1000, Boost: true, BoostDuration: 60 * time.Minute},
	})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv() // environment variables override, e.g. API_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return
		}
		// Config file not found; defaults plus env are enough
	}

	err = v.Unmarshal(&config)
	return
}
