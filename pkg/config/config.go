package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Cognito   CognitoConfig
	DynamoDB  DynamoDBConfig
	Redis     RedisConfig
	Session   SessionConfig
	SQLite    SQLiteConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// APIConfig describes the remote classification/retrieval service.
type APIConfig struct {
	BaseURL            string
	KeyHeader          string
	ClassifyPath       string
	RetrievalPath      string
	SmartQueryPath     string
	ClassifyKey        string
	RetrievalKey       string
	SmartQueryKey      string
	ClassifyEnabled    bool
	ClassifyTimeoutSec int
	AnswerTimeoutSec   int
}

type CognitoConfig struct {
	Enabled      bool
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
}

type DynamoDBConfig struct {
	Enabled        bool
	Region         string
	Table          string
	KeyAttribute   string
	LikedAttribute string
	Endpoint       string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type SessionConfig struct {
	CookieName   string
	SecureCookie bool
	TTLMin       int
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type SecurityConfig struct {
	AllowedOrigins []string
	Development    bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lewas-chat")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("LEWAS_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.API.ClassifyKey == "" {
		config.API.ClassifyKey = config.API.SmartQueryKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports the first missing value an enabled integration needs.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.baseURL is required")
	}
	if c.Cognito.Enabled {
		if c.Cognito.Region == "" || c.Cognito.ClientID == "" {
			return errors.New("cognito.region and cognito.clientID are required when cognito is enabled")
		}
	}
	if c.DynamoDB.Enabled && c.DynamoDB.Table == "" {
		return errors.New("dynamodb.table is required when dynamodb is enabled")
	}
	if c.SQLite.Enabled && c.SQLite.Path == "" {
		return errors.New("sqlite.path is required when sqlite is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 45)
	v.SetDefault("server.writeTimeout", 45)
	v.SetDefault("server.bodyLimit", 1048576)

	v.SetDefault("api.baseURL", "")
	v.SetDefault("api.keyHeader", "API-Key")
	v.SetDefault("api.classifyPath", "/classify")
	v.SetDefault("api.retrievalPath", "/query_documents")
	v.SetDefault("api.smartQueryPath", "/smart_query")
	v.SetDefault("api.classifyKey", "")
	v.SetDefault("api.retrievalKey", "")
	v.SetDefault("api.smartQueryKey", "")
	v.SetDefault("api.classifyEnabled", true)
	v.SetDefault("api.classifyTimeoutSec", 10)
	v.SetDefault("api.answerTimeoutSec", 30)

	v.SetDefault("cognito.enabled", true)
	v.SetDefault("cognito.region", "us-east-1")
	v.SetDefault("cognito.userPoolID", "")
	v.SetDefault("cognito.clientID", "")
	v.SetDefault("cognito.clientSecret", "")

	v.SetDefault("dynamodb.enabled", true)
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.table", "")
	v.SetDefault("dynamodb.keyAttribute", "query_id")
	v.SetDefault("dynamodb.likedAttribute", "liked")
	v.SetDefault("dynamodb.endpoint", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.cookieName", "lewas_session")
	v.SetDefault("session.secureCookie", true)
	v.SetDefault("session.ttlMin", 720)

	v.SetDefault("sqlite.enabled", false)
	v.SetDefault("sqlite.path", "./data/lewas-chat.db")

	v.SetDefault("ratelimit.maxRequestsPerMinute", 30)

	v.SetDefault("security.allowedOrigins", []string{})
	v.SetDefault("security.development", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
