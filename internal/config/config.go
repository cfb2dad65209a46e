// Package config provides configuration for the simulator service.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Engine providers understood by ENGINE_PROVIDER.
const (
	ProviderMock      = "mock"
	ProviderRemote    = "remote"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock forces the mock simulation engine regardless of ENGINE_PROVIDER.
	ModeMock = "MOCK"
)

// Config holds the simulator configuration.
type Config struct {
	AppName    string
	AppVersion string

	// Server settings
	HTTPPort int
	RPCPort  int

	// Storage
	SimulationsDir string
	DatabaseURL    string

	// Simulation engine
	EngineProvider string
	EngineURL      string
	EngineTimeout  time.Duration
	LLMModel       string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMTemperature float64
	LLMMaxTokens   int

	// Admission policy
	MaxAgentsPerSimulation int

	// Lifecycle
	ReconcileOnStartup bool
	ShutdownTimeout    time.Duration

	// WebSocket settings
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		AppName:                getEnv("APP_NAME", "OptimusSim"),
		AppVersion:             getEnv("APP_VERSION", "0.1.0"),
		HTTPPort:               getEnvInt("HTTP_PORT", 8080),
		RPCPort:                getEnvInt("RPC_PORT", 8081),
		SimulationsDir:         getEnv("SIMULATIONS_DIR", "simulations"),
		DatabaseURL:            getEnv("DATABASE_URL", "file:simulator.db?cache=shared&mode=rwc"),
		EngineProvider:         strings.ToLower(getEnv("ENGINE_PROVIDER", ProviderMock)),
		EngineURL:              getEnv("ENGINE_URL", ""),
		EngineTimeout:          time.Duration(getEnvInt("ENGINE_TIMEOUT_MS", 0)) * time.Millisecond,
		LLMModel:               getEnv("LLM_MODEL", ""),
		LLMAPIKey:              getEnv("LLM_API_KEY", ""),
		LLMBaseURL:             getEnv("LLM_BASE_URL", ""),
		LLMTemperature:         getEnvFloat("LLM_TEMPERATURE", 1.0),
		LLMMaxTokens:           getEnvInt("LLM_MAX_TOKENS", 1024),
		MaxAgentsPerSimulation: getEnvInt("MAX_AGENTS_PER_SIMULATION", 20),
		ReconcileOnStartup:     getEnvBool("RECONCILE_ON_STARTUP", true),
		ShutdownTimeout:        time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSPingInterval:         time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:         time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSReadTimeout:          time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WSMaxMessageSize:       int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
	}
	if os.Getenv(EnvGogoMode) == ModeMock {
		cfg.EngineProvider = ProviderMock
	}
	return cfg
}

// Validate reports configuration problems that would prevent simulations from running.
// An empty slice means the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string
	switch c.EngineProvider {
	case ProviderMock:
	case ProviderRemote:
		if c.EngineURL == "" {
			issues = append(issues, "ENGINE_URL not set")
		}
	case ProviderOpenAI, ProviderAnthropic:
		if c.LLMAPIKey == "" {
			issues = append(issues, "LLM_API_KEY not set")
		}
	default:
		issues = append(issues, fmt.Sprintf("Invalid ENGINE_PROVIDER: %s", c.EngineProvider))
	}
	if c.SimulationsDir == "" {
		issues = append(issues, "SIMULATIONS_DIR not set")
	}
	return issues
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
