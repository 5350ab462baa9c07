package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ProjectID                    string `envconfig:"FIREBASE_PROJECT_ID"`
	GoogleCloudProject           string `envconfig:"GOOGLE_CLOUD_PROJECT"`
	Port                         string `envconfig:"PORT" default:"8080"`
	RawAllowedOrigins            string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	StorageBucket                string `envconfig:"FIREBASE_STORAGE_BUCKET"`
	SignedURLServiceAccountEmail string `envconfig:"SIGNED_URL_SERVICE_ACCOUNT_EMAIL"`
	RedisURL                     string `envconfig:"REDIS_URL"`
	LogLevel                     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat                    string `envconfig:"LOG_FORMAT" default:"json"`

	FeedPoolSize   int `envconfig:"FEED_POOL_SIZE" default:"50"`
	SearchPoolSize int `envconfig:"SEARCH_POOL_SIZE" default:"100"`
	FeaturedLimit  int `envconfig:"FEATURED_LIMIT" default:"10"`

	AllowedOrigins []string `ignored:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	// FIREBASE_PROJECT_ID wins, GOOGLE_CLOUD_PROJECT is the Cloud Run default
	if cfg.ProjectID == "" {
		cfg.ProjectID = cfg.GoogleCloudProject
	}
	if cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
	}
	if cfg.StorageBucket == "" {
		cfg.StorageBucket = cfg.ProjectID + ".appspot.com"
	}
	if cfg.FeaturedLimit <= 0 {
		cfg.FeaturedLimit = 10
	}

	cfg.AllowedOrigins = splitOrigins(cfg.RawAllowedOrigins)
	return cfg, nil
}

func splitOrigins(raw string) []string {
	allowed := []string{}
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	return allowed
}
