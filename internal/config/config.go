package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the process configuration. Precedence: command-line flags, then
// environment, then the optional config file, then defaults.
type Config struct {
	// Symbols to trade, from the positional command-line arguments.
	Symbols []string `mapstructure:"-"`
	// Lot is the target dollar notional per buy order.
	Lot             float64       `mapstructure:"lot"`
	Feed            string        `mapstructure:"feed"`
	Window          int           `mapstructure:"window"`
	CheckupInterval time.Duration `mapstructure:"checkup-interval"`
	StaleOrderAge   time.Duration `mapstructure:"stale-order-age"`
	CutoffTime      string        `mapstructure:"cutoff-time"`
	Timezone        string        `mapstructure:"timezone"`
	MaxNotional     float64       `mapstructure:"max-notional"`
	KillSwitch      bool          `mapstructure:"kill-switch"`
	JournalPath     string        `mapstructure:"journal-path"`
	LogPath         string        `mapstructure:"log-path"`
	PaperBaseURL    string        `mapstructure:"paper-base-url"`

	APIKey    string `mapstructure:"-"`
	APISecret string `mapstructure:"-"`

	// Parsed from CutoffTime and Timezone during Load.
	Cutoff   time.Duration  `mapstructure:"-"`
	Location *time.Location `mapstructure:"-"`
}

// Load resolves the configuration. configFile may be empty; flags may be nil.
func Load(configFile string, symbols []string, flags *pflag.FlagSet) (Config, error) {
	loadDotEnvIfPresent(".env")

	v := viper.New()
	v.SetDefault("lot", 2000.0)
	v.SetDefault("feed", "iex")
	v.SetDefault("window", 20)
	v.SetDefault("checkup-interval", 30*time.Second)
	v.SetDefault("stale-order-age", 2*time.Minute)
	v.SetDefault("cutoff-time", "15:55")
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("max-notional", 0.0)
	v.SetDefault("kill-switch", false)
	v.SetDefault("journal-path", "journal.ndjson")
	v.SetDefault("log-path", "scalper.log")
	v.SetDefault("paper-base-url", "https://paper-api.alpaca.markets")

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Symbols = symbols
	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	cutoff, err := parseCutoff(cfg.CutoffTime)
	if err != nil {
		return Config{}, err
	}
	cfg.Cutoff = cutoff

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseCutoff converts an "HH:MM" exchange-local wall time into an offset from
// midnight.
func parseCutoff(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid cutoff time %q: %w", value, err)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

func validate(cfg Config) error {
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required")
	}
	if cfg.Lot <= 0 {
		return fmt.Errorf("lot must be > 0")
	}
	if cfg.Window <= 1 {
		return fmt.Errorf("window must be > 1")
	}
	if cfg.CheckupInterval <= 0 {
		return fmt.Errorf("checkup-interval must be > 0")
	}
	if cfg.StaleOrderAge <= 0 {
		return fmt.Errorf("stale-order-age must be > 0")
	}
	if cfg.MaxNotional < 0 {
		return fmt.Errorf("max-notional must be >= 0")
	}
	return nil
}
