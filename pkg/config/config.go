package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Scoring   ScoringConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	Development    bool
	AllowedOrigins []string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects the Cache Gateway backend and the per-operation TTLs in seconds.
type CacheConfig struct {
	Backend            string
	MaxEntries         int
	SuggestionsTTL     int
	BehaviorTTL        int
	ClassificationTTL  int
	RecommendationsTTL int
	BreakerFailures    int
	BreakerTimeoutSec  int
}

type ScoringConfig struct {
	SuggestionLimit     int
	RecommendationLimit int
	ModelVersion        string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func (c CacheConfig) TTL(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, or from the default search paths when path is empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/insights")
	}

	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid cache backend %q", c.Cache.Backend)
	}
	if c.Scoring.SuggestionLimit <= 0 || c.Scoring.RecommendationLimit <= 0 {
		return fmt.Errorf("scoring limits must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.development", false)
	v.SetDefault("server.allowedOrigins", []string{})

	v.SetDefault("sqlite.path", "./data/insights.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.maxEntries", 10000)
	v.SetDefault("cache.suggestionsTTL", 3600)
	v.SetDefault("cache.behaviorTTL", 1800)
	v.SetDefault("cache.classificationTTL", 86400)
	v.SetDefault("cache.recommendationsTTL", 3600)
	v.SetDefault("cache.breakerFailures", 5)
	v.SetDefault("cache.breakerTimeoutSec", 30)

	v.SetDefault("scoring.suggestionLimit", 10)
	v.SetDefault("scoring.recommendationLimit", 5)
	v.SetDefault("scoring.modelVersion", "v1.0")

	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
