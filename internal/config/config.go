// Package config loads gateway configuration in layers: defaults -> YAML
// file -> environment overrides via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway process.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Project ProjectConfig `mapstructure:"project"`
	OPCUA   OPCUAConfig   `mapstructure:"opcua"`
	Modbus  ModbusConfig  `mapstructure:"modbus"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// ServerConfig contains the small status/diagnostics HTTP surface settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ProjectConfig locates the project document on disk.
type ProjectConfig struct {
	Path        string `mapstructure:"path"`         // JSON (or YAML) project document
	WorkingCopy string `mapstructure:"working_copy"` // directory for the survives-restart working-copy JSON (empty = os.TempDir())
	ReloadCron  string `mapstructure:"reload_cron"`  // optional cron expression for periodic reload
}

// OPCUAConfig mirrors the project document's `opcua_settings` block.
type OPCUAConfig struct {
	Host              string          `mapstructure:"host"`
	Port              int             `mapstructure:"port"`
	AppName           string          `mapstructure:"app_name"`
	PublishIntervalMS int             `mapstructure:"publish_interval_ms"`
	SecurityPolicies  []string        `mapstructure:"security_policies"`
	Authentication    OPCUAAuthConfig `mapstructure:"authentication"`
	Certificate       OPCUACertConfig `mapstructure:"certificate"`
}

// OPCUAAuthConfig configures the OPC UA server's user manager.
type OPCUAAuthConfig struct {
	AllowAnonymous bool   `mapstructure:"allow_anonymous"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
}

// OPCUACertConfig configures the self-signed server certificate.
type OPCUACertConfig struct {
	Dir          string `mapstructure:"dir"`
	ValidityDays int    `mapstructure:"validity_days"`
}

// ModbusConfig carries gateway-wide Modbus defaults applied when a device
// does not override them.
type ModbusConfig struct {
	MaxRegistersPerBatch int `mapstructure:"max_registers_per_batch"`
	MaxCoilsPerBatch     int `mapstructure:"max_coils_per_batch"`
}

// LoggerConfig contains logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	LogDir string `mapstructure:"log_dir"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults.
	}

	v.SetEnvPrefix("MODGATE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)

	v.SetDefault("project.path", "./project.json")
	v.SetDefault("project.working_copy", "")

	v.SetDefault("opcua.host", "0.0.0.0")
	v.SetDefault("opcua.port", 4840)
	v.SetDefault("opcua.app_name", "modgate")
	v.SetDefault("opcua.publish_interval_ms", 1000)
	v.SetDefault("opcua.security_policies", []string{"None"})
	v.SetDefault("opcua.authentication.allow_anonymous", true)
	v.SetDefault("opcua.certificate.validity_days", 825)

	v.SetDefault("modbus.max_registers_per_batch", 120)
	v.SetDefault("modbus.max_coils_per_batch", 2000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".modgate")
}
