package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigError reports missing or malformed configuration; fatal at
// startup (§7 ConfigError).
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
}
func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds all configuration for the guidance core.
type Config struct {
	Otto      OttoConfig      `mapstructure:"otto"`
	GPS       GPSConfig       `mapstructure:"gps"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mission   MissionConfig   `mapstructure:"mission"`
	Navigator NavigatorConfig `mapstructure:"navigator"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// OttoConfig addresses the low-level controller's serial link.
type OttoConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// GPSConfig addresses the GPS receiver's serial link.
type GPSConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// RedisConfig addresses the shared-state backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MissionConfig locates the mission file the core consumes at startup.
type MissionConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// NavigatorConfig tunes the vector-field planner.
type NavigatorConfig struct {
	SwingDegrees       int     `mapstructure:"swing_degrees"`
	LookaheadWaypoints int     `mapstructure:"lookahead_waypoints"`
	ReachedDistanceNM  float64 `mapstructure:"reached_distance_nm"`
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
			return nil, &ConfigError{Reason: "failed to read config file", Err: err}
		}
		// Config file not found; using defaults
	}

	v.SetEnvPrefix("SAILCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Reason: "failed to unmarshal config", Err: err}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Otto link defaults
	v.SetDefault("otto.port", "/dev/ttyUSB0")
	v.SetDefault("otto.baud", 9600)

	// GPS defaults
	v.SetDefault("gps.port", "/dev/ttyUSB1")
	v.SetDefault("gps.baud", 4800)

	// Shared-state backend defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Mission defaults
	v.SetDefault("mission.file_path", "./missions/current.yaml")

	// Navigator defaults
	v.SetDefault("navigator.swing_degrees", 45)
	v.SetDefault("navigator.lookahead_waypoints", 3)
	v.SetDefault("navigator.reached_distance_nm", 0.0054)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".sailcore")
}
