package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	ServerPort     string
	AllowedOrigins string
	CookieDomain   string
	Environment    string

	MinioAccessKey string
	MinioSecretKey string
	MinioEndpoint  string
	MinioRegion    string

	JWKSURL          string
	ExpectedIssuer   string
	ExpectedAudience string

	WorkOSApiKey         string
	WorkOSClientId       string
	WorkOSRedirectURI    string
	WorkOSUserManagement string

	SessionDurationHours int
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load() // Ignore error since file might not exist in production

	// Get environment with default
	env := getEnvWithDefault("ENVIRONMENT", "development")
	env = strings.ToLower(env)

	// Validate environment value
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[env] {
		return nil, fmt.Errorf("invalid environment value: %s", env)
	}

	sessionHours, err := strconv.Atoi(getEnvWithDefault("SESSION_DURATION", "12"))
	if err != nil || sessionHours <= 0 {
		return nil, fmt.Errorf("invalid SESSION_DURATION value")
	}

	config := &Config{
		Environment: env,

		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		MongoDBURL:  os.Getenv("MONGODB_URL"),
		MongoDBName: getEnvWithDefault("MONGODB_NAME", "clinic"),

		ServerPort:     getEnvWithDefault("SERVER_PORT", "8080"),
		AllowedOrigins: getEnvWithDefault("ALLOWED_ORIGINS", "*"),
		CookieDomain:   getEnvWithDefault("COOKIE_DOMAIN", ""),

		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioRegion:    getEnvWithDefault("MINIO_REGION", "us-east-1"),

		JWKSURL:          os.Getenv("JWKS_URL"),
		ExpectedIssuer:   os.Getenv("EXPECTED_ISSUER"),
		ExpectedAudience: os.Getenv("EXPECTED_AUDIENCE"),

		WorkOSApiKey:         os.Getenv("WORKOS_API_KEY"),
		WorkOSClientId:       os.Getenv("WORKOS_CLIENT_ID"),
		WorkOSRedirectURI:    os.Getenv("WORKOS_REDIRECT_URI"),
		WorkOSUserManagement: os.Getenv("WORKOS_USER_M_KEY"),

		SessionDurationHours: sessionHours,
	}

	return config, nil
}

// IsDevelopment returns whether the current environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns whether the current environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
