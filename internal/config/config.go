package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the tracker.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Store    Store    `mapstructure:"store"`
	Server   Server   `mapstructure:"server"`
	Prices   Prices   `mapstructure:"prices"`
	Feed     Feed     `mapstructure:"feed"`
	Tracking Tracking `mapstructure:"tracking"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Store holds the configuration for the key-value configuration store.
type Store struct {
	DSN string `mapstructure:"dsn"`
}

// Server holds the configuration for the status API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Prices holds the configuration for the item price API client.
type Prices struct {
	BaseURL         string  `mapstructure:"base_url"`
	RefreshInterval int     `mapstructure:"refresh_interval"` // seconds
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	UserAgent       string  `mapstructure:"user_agent"`
}

// Feed holds the configuration for the game-event websocket feed.
type Feed struct {
	URL string `mapstructure:"url"`
}

// Tracking holds the configuration for the trade history itself.
type Tracking struct {
	AutoLoadLastProfile bool   `mapstructure:"auto_load_last_profile"`
	IgnoreEmptyTrades   bool   `mapstructure:"ignore_empty_trades"`
	MaxHistoryCount     int    `mapstructure:"max_history_count"`
	PurgeUnit           string `mapstructure:"purge_unit"` // never, minute, hour, day, year
	PurgeMagnitude      int    `mapstructure:"purge_magnitude"`
	Use24HourTime       bool   `mapstructure:"use_24_hour_time"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("store.dsn", "tracker.db")
	viper.SetDefault("server.port", 8386)
	viper.SetDefault("prices.base_url", "https://prices.runescape.wiki/api/v1/osrs")
	viper.SetDefault("prices.refresh_interval", 300)
	viper.SetDefault("prices.rate_limit", 2)
	viper.SetDefault("prices.rate_limit_burst", 2)
	viper.SetDefault("prices.user_agent", "trade-tracker-go")
	viper.SetDefault("feed.url", "ws://127.0.0.1:9421/events")
	viper.SetDefault("tracking.auto_load_last_profile", true)
	viper.SetDefault("tracking.ignore_empty_trades", false)
	viper.SetDefault("tracking.max_history_count", 256)
	viper.SetDefault("tracking.purge_unit", "year")
	viper.SetDefault("tracking.purge_magnitude", 1)
	viper.SetDefault("tracking.use_24_hour_time", false)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
