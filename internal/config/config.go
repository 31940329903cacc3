package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// The agent is expected to run as a single host-level service next to the
// device; everything is supplied through environment variables.

type Config struct {
	ExecutionTime    string        `mapstructure:"EXECUTION_TIME"`
	PollInterval     time.Duration `mapstructure:"POLL_INTERVAL"`
	DeviceBridgeURL  string        `mapstructure:"DEVICE_BRIDGE_URL"`
	DeviceTimeout    time.Duration `mapstructure:"DEVICE_TIMEOUT"`
	APIBaseURL       string        `mapstructure:"API_BASE_URL"`
	TokenPath        string        `mapstructure:"TOKEN_PATH"`
	AttendancePath   string        `mapstructure:"ATTENDANCE_PATH"`
	DevicePath       string        `mapstructure:"DEVICE_PATH"`
	APITimeout       time.Duration `mapstructure:"API_TIMEOUT"`
	LoginEmail       string        `mapstructure:"LOGIN_EMAIL"`
	LoginPassword    string        `mapstructure:"LOGIN_PASSWORD"`
	RetryInterval    time.Duration `mapstructure:"RETRY_INTERVAL"`
	RetryMaxAttempts int           `mapstructure:"RETRY_MAX_ATTEMPTS"`
	DataDir          string        `mapstructure:"DATA_DIR"`
	QueueDBPath      string        `mapstructure:"QUEUE_DB_PATH"`
	NTPServer        string        `mapstructure:"NTP_SERVER"`
	Timezone         string        `mapstructure:"TIMEZONE"`
	NTPTimeout       time.Duration `mapstructure:"NTP_TIMEOUT"`
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	OTLPEndpoint     string        `mapstructure:"OTLP_ENDPOINT"`
	IsLocalDev       bool          `mapstructure:"IS_LOCAL_DEV"`
}

// LoadConfig reads configuration from environment variables. A missing or
// malformed execution time is the only fatal startup condition.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("EXECUTION_TIME", "")
	viper.SetDefault("POLL_INTERVAL", "10s")
	viper.SetDefault("DEVICE_BRIDGE_URL", "http://localhost:4370")
	viper.SetDefault("DEVICE_TIMEOUT", "5s")
	viper.SetDefault("API_BASE_URL", "http://localhost:8081")
	viper.SetDefault("TOKEN_PATH", "/api/token")
	viper.SetDefault("ATTENDANCE_PATH", "/api/attendance")
	viper.SetDefault("DEVICE_PATH", "/api/device")
	viper.SetDefault("API_TIMEOUT", "10s")
	viper.SetDefault("LOGIN_EMAIL", "")
	viper.SetDefault("LOGIN_PASSWORD", "")
	viper.SetDefault("RETRY_INTERVAL", "30s")
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 12)
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("QUEUE_DB_PATH", "data/pending_queue.db")
	viper.SetDefault("NTP_SERVER", "pool.ntp.org")
	viper.SetDefault("TIMEZONE", "America/Bogota")
	viper.SetDefault("NTP_TIMEOUT", "5s")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OTLP_ENDPOINT", "jaeger:4317")
	viper.SetDefault("IS_LOCAL_DEV", false)

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, config.validate()
}

func (c Config) validate() error {
	if c.ExecutionTime == "" {
		return errors.New("EXECUTION_TIME not set in environment variables")
	}
	if _, err := time.Parse("15:04", c.ExecutionTime); err != nil {
		return fmt.Errorf("EXECUTION_TIME must be HH:MM: %w", err)
	}
	return nil
}
