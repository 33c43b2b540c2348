package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendHTTP   = "http"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port               string `yaml:"port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	// Upstream API
	APIBaseURL      string        `yaml:"api_base_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`

	// Backend selection
	DataBackend string `yaml:"data_backend"`
	SeedFile    string `yaml:"seed_file"`

	// Presentation
	Locale   string `yaml:"locale"`
	LogLevel string `yaml:"log_level"`

	// AMQP (disabled when URL is empty)
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// MQTT (disabled when broker is empty)
	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`
	MQTTUsername    string `yaml:"mqtt_username"`
	MQTTPassword    string `yaml:"mqtt_password"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		APIBaseURL:         "https://card-usages.vercel.app",
		UpstreamTimeout:    60 * time.Second,
		DataBackend:        BackendHTTP,
		SeedFile:           "data/usages.json",
		Locale:             "en",
		LogLevel:           "info",
		AMQPExchange:       "card",
		AMQPQueue:          "card_state",
		MQTTTopicPrefix:    "card",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then the environment. Environment variables win over the file.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SeedFile = getEnv("SEED_FILE", cfg.SeedFile)
	cfg.Locale = getEnv("LOCALE", cfg.Locale)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.MQTTBroker = getEnv("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTTTopicPrefix)
	cfg.MQTTUsername = getEnv("MQTT_USERNAME", cfg.MQTTUsername)
	cfg.MQTTPassword = getEnv("MQTT_PASSWORD", cfg.MQTTPassword)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// AMQPEnabled reports whether state changes should be published to RabbitMQ.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// MQTTEnabled reports whether state changes should be published over MQTT.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{BackendHTTP, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendHTTP {
		if parsed, err := url.Parse(c.APIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		} else if parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': missing host", c.APIBaseURL))
		}
	}

	if c.UpstreamTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid upstream timeout %v: must be at least 100ms", c.UpstreamTimeout))
	} else if c.UpstreamTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid upstream timeout %v: must be at most 5 minutes", c.UpstreamTimeout))
	}

	switch strings.ToLower(c.Locale) {
	case "en", "ko", "ko-kr", "en-us":
	default:
		errors = append(errors, fmt.Sprintf("invalid locale '%s': must be 'en' or 'ko'", c.Locale))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate MQTT broker if provided
	if c.MQTTBroker != "" {
		if _, _, err := net.SplitHostPort(c.MQTTBroker); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MQTT broker '%s': must be host:port", c.MQTTBroker))
		}
		if c.MQTTTopicPrefix == "" {
			errors = append(errors, "MQTT topic prefix cannot be empty when MQTT broker is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
