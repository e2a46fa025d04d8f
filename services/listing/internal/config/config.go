package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, relative to the working
// directory the service is started from.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	StoreDriver   string `yaml:"storeDriver"` // postgres | mongo
	DatabaseURL   string `yaml:"databaseURL"`
	MongoURI      string `yaml:"mongoURI"`
	MongoDatabase string `yaml:"mongoDatabase"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AuthJWKSURL  string `yaml:"authJwksUrl"`
	AuthIssuer   string `yaml:"authIssuer"`
	AuthAudience string `yaml:"authAudience"`

	GeminiAPIKey     string `yaml:"geminiApiKey"`
	GeminiTextModel  string `yaml:"geminiTextModel"`
	GeminiImageModel string `yaml:"geminiImageModel"`

	EncodePhotos       bool `yaml:"encodePhotos"`
	UploadConcurrency  int  `yaml:"uploadConcurrency"`
	RateLimitPerMinute int  `yaml:"rateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("HOMEPORTAL_AUTH_JWKS_URL"); v != "" {
		cfg.AuthJWKSURL = v
	}
	if v := os.Getenv("HOMEPORTAL_AUTH_ISSUER"); v != "" {
		cfg.AuthIssuer = v
	}
	if v := os.Getenv("HOMEPORTAL_AUTH_AUDIENCE"); v != "" {
		cfg.AuthAudience = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("HOMEPORTAL_GEMINI_TEXT_MODEL"); v != "" {
		cfg.GeminiTextModel = v
	}
	if v := os.Getenv("HOMEPORTAL_GEMINI_IMAGE_MODEL"); v != "" {
		cfg.GeminiImageModel = v
	}
	if v := os.Getenv("HOMEPORTAL_ENCODE_PHOTOS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EncodePhotos = b
		}
	}
	if v := os.Getenv("HOMEPORTAL_UPLOAD_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UploadConcurrency = n
		}
	}
	if v := os.Getenv("HOMEPORTAL_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres store (set in config.yaml or DATABASE_URL)")
		}
	case "mongo":
		if cfg.MongoURI == "" {
			return errors.New("config: mongoURI is required for the mongo store (set in config.yaml or MONGO_URI)")
		}
		if cfg.MongoDatabase == "" {
			return errors.New("config: mongoDatabase is required for the mongo store (set in config.yaml or MONGO_DATABASE)")
		}
	default:
		return fmt.Errorf("config: unknown storeDriver %q (expected postgres or mongo)", cfg.StoreDriver)
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return errors.New("config: minioEndpoint and minioBucket are required (set in config.yaml or MINIO_ENDPOINT/MINIO_BUCKET)")
	}
	if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
		return errors.New("config: minio credentials are required (set MINIO_ACCESS_KEY and MINIO_SECRET_KEY)")
	}
	if cfg.AuthJWKSURL == "" {
		return errors.New("config: authJwksUrl is required (set in config.yaml or HOMEPORTAL_AUTH_JWKS_URL)")
	}
	if cfg.GeminiAPIKey != "" && cfg.GeminiTextModel == "" {
		return errors.New("config: geminiTextModel is required when geminiApiKey is set")
	}
	if cfg.UploadConcurrency < 0 {
		return errors.New("config: uploadConcurrency must be >= 0")
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must be >= 0")
	}
	return nil
}
