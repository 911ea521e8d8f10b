package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// DefaultPort is used when PORT is unset or empty.
const DefaultPort = "3000"

const (
	DefaultDataDir  = "data"
	DefaultLogLevel = "info"
	DefaultGinMode  = "release"
)

var (
	// ErrInvalidPort is returned when PORT is not a TCP port number.
	ErrInvalidPort = errors.New("invalid PORT")
	// ErrInvalidGinMode is returned when GIN_MODE is not debug, release or test.
	ErrInvalidGinMode = errors.New("invalid GIN_MODE")
)

type Config struct {
	Port         string
	WebhookToken string
	DataDir      string
	LogLevel     string
	GinMode      string
}

// Addr returns the listen address for Port on all interfaces.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Load reads config from env map. For production use LoadFromEnv.
func Load(env map[string]string) (*Config, error) {
	port := strings.TrimSpace(env["PORT"])
	if port == "" {
		port = DefaultPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return nil, errors.Wrapf(ErrInvalidPort, "%q", port)
	}

	dataDir := env["SOLAR_DATA_DIR"]
	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	logLevel := strings.ToLower(env["LOG_LEVEL"])
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	ginMode := strings.ToLower(env["GIN_MODE"])
	switch ginMode {
	case "":
		ginMode = DefaultGinMode
	case "debug", "release", "test":
	default:
		return nil, errors.Wrapf(ErrInvalidGinMode, "%q", ginMode)
	}

	return &Config{
		Port:         port,
		WebhookToken: env["WEBHOOK_TOKEN"],
		DataDir:      dataDir,
		LogLevel:     logLevel,
		GinMode:      ginMode,
	}, nil
}

// LoadFromEnv loads config from os environment variables, after merging a
// .env file from the working directory when one exists.
func LoadFromEnv() (*Config, error) {
	// Missing .env is fine; real environment wins over file values.
	_ = godotenv.Load()

	env := map[string]string{
		"PORT":           os.Getenv("PORT"),
		"WEBHOOK_TOKEN":  os.Getenv("WEBHOOK_TOKEN"),
		"SOLAR_DATA_DIR": os.Getenv("SOLAR_DATA_DIR"),
		"LOG_LEVEL":      os.Getenv("LOG_LEVEL"),
		"GIN_MODE":       os.Getenv("GIN_MODE"),
	}
	return Load(env)
}
