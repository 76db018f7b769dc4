package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported password hashers.
const (
	HasherPBKDF2 = "pbkdf2"
	HasherBcrypt = "bcrypt"
)

var (
	// ErrUnknownHasher is returned when PASSWORD_HASHER names an unsupported algorithm.
	ErrUnknownHasher = errors.New("unknown password hasher")
	// ErrInvalidPort is returned when WEBSERVER_PORT is outside 1-65535.
	ErrInvalidPort = errors.New("invalid webserver port")
	// ErrInvalidIterations is returned when PASSWORD_ITERATIONS is not positive.
	ErrInvalidIterations = errors.New("password iterations must be positive")
)

// Config holds runtime settings for the users service.
type Config struct {
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	WebserverIP   string
	WebserverPort int

	JWTSecret string
	JWTTTL    time.Duration

	PasswordHasher     string
	PasswordPepper     string
	PasswordIterations int
	BcryptCost         int

	// RabbitMQURL left empty disables lifecycle events.
	RabbitMQURL      string
	RabbitMQExchange string

	LogDevelopment bool
	LogDebug       bool
	LogOutput      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "aptlist")
	v.SetDefault("MONGO_TIMEOUT", 10*time.Second)
	v.SetDefault("WEBSERVER_IP", "0.0.0.0")
	v.SetDefault("WEBSERVER_PORT", 5000)
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("PASSWORD_HASHER", HasherPBKDF2)
	v.SetDefault("PASSWORD_PEPPER", "aptlist")
	v.SetDefault("PASSWORD_ITERATIONS", 10000)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "users")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("LOG_DEBUG", false)
	v.SetDefault("LOG_OUTPUT", "")
}

// Load reads envFile (if present) into the process environment and builds a Config from
// the environment on top of the defaults. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDatabase:      v.GetString("MONGO_DATABASE"),
		MongoTimeout:       v.GetDuration("MONGO_TIMEOUT"),
		WebserverIP:        v.GetString("WEBSERVER_IP"),
		WebserverPort:      v.GetInt("WEBSERVER_PORT"),
		JWTSecret:          v.GetString("JWT_SECRET_KEY"),
		JWTTTL:             v.GetDuration("JWT_TTL"),
		PasswordHasher:     strings.ToLower(v.GetString("PASSWORD_HASHER")),
		PasswordPepper:     v.GetString("PASSWORD_PEPPER"),
		PasswordIterations: v.GetInt("PASSWORD_ITERATIONS"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:   v.GetString("RABBITMQ_EXCHANGE"),
		LogDevelopment:     v.GetBool("LOG_DEVELOPMENT"),
		LogDebug:           v.GetBool("LOG_DEBUG"),
		LogOutput:          v.GetString("LOG_OUTPUT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted safely.
func (c *Config) Validate() error {
	switch c.PasswordHasher {
	case HasherPBKDF2, HasherBcrypt:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHasher, c.PasswordHasher)
	}
	if c.PasswordIterations <= 0 {
		return ErrInvalidIterations
	}
	if c.WebserverPort <= 0 || c.WebserverPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.WebserverPort)
	}
	return nil
}

// EventsEnabled reports whether a message broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}
