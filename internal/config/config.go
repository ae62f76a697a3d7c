// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"trading-journal/internal/analysis"
	"trading-journal/internal/analysis/consistency"
	"trading-journal/internal/analysis/nudge"
	"trading-journal/internal/analysis/playbook"
	"trading-journal/internal/analysis/streak"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
)

// FileName is the configuration file name without extension.
const FileName = "config"

// Config holds all application configuration.
type Config struct {
	Engine      EngineConfig        `mapstructure:"engine"`
	Playbook    playbook.Thresholds `mapstructure:"playbook"`
	Consistency ConsistencyConfig   `mapstructure:"consistency"`
	Nudge       nudge.Params        `mapstructure:"nudge"`
	Account     AccountConfig       `mapstructure:"account"`
	Storage     StorageConfig       `mapstructure:"storage"`
	Logging     logging.LogConfig   `mapstructure:"logging"`

	// Path is the file the configuration was read from.
	Path string `mapstructure:"-"`
}

// EngineConfig holds settings shared by the analyzers.
type EngineConfig struct {
	Rules            []string `mapstructure:"rules"`
	RestDaysPerWeek  int      `mapstructure:"rest_days_per_week"`
	BreakevenEpsilon float64  `mapstructure:"breakeven_epsilon"`
	CacheSize        int      `mapstructure:"cache_size"`
}

// ConsistencyConfig holds consistency scoring settings.
type ConsistencyConfig struct {
	WindowSize      int                 `mapstructure:"window_size"`
	JournalingDays  int                 `mapstructure:"journaling_days"`
	MinStopDistance float64             `mapstructure:"min_stop_distance"`
	Weights         consistency.Weights `mapstructure:"weights"`
}

// AccountConfig holds the optional account context.
type AccountConfig struct {
	Balance        float64 `mapstructure:"balance"`
	MaxRiskPercent float64 `mapstructure:"max_risk_percent"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
	User   string `mapstructure:"user"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trading-journal"
	}
	return filepath.Join(home, ".config", "trading-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing config file is
// replaced by the commented template and loading continues with its defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	setDefaults(v, configDir)

	cfg := &Config{}
	path, err := readConfigFile(v, configDir, FileName)
	if err != nil {
		return nil, fmt.Errorf("loading %s.toml: %w", FileName, err)
	}
	cfg.Path = path

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s.toml: %w", FileName, err)
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(configDir, "journal.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "journal.log")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.Storage.DBPath = filepath.Join(DefaultConfigDir(), "journal.db")
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	rules := make([]string, len(models.DefaultRules))
	for i, r := range models.DefaultRules {
		rules[i] = string(r)
	}
	v.SetDefault("engine.rules", rules)
	v.SetDefault("engine.rest_days_per_week", streak.DefaultRestDaysPerWeek)
	v.SetDefault("engine.breakeven_epsilon", models.DefaultBreakevenEpsilon)
	v.SetDefault("engine.cache_size", 32)

	v.SetDefault("playbook.edge_win_rate", playbook.DefaultEdgeWinRate)
	v.SetDefault("playbook.min_sample", playbook.DefaultMinSample)

	v.SetDefault("consistency.window_size", consistency.DefaultWindowSize)
	v.SetDefault("consistency.journaling_days", consistency.DefaultJournalingDays)
	v.SetDefault("consistency.min_stop_distance", 0.0)
	v.SetDefault("consistency.weights.rule_adherence", 1.0)
	v.SetDefault("consistency.weights.risk_management", 1.0)
	v.SetDefault("consistency.weights.emotional_discipline", 1.0)
	v.SetDefault("consistency.weights.journaling_consistency", 1.0)

	np := nudge.DefaultParams()
	v.SetDefault("nudge.max_nudges", np.MaxNudges)
	v.SetDefault("nudge.loss_streak_min_trades", np.LossStreakMinTrades)
	v.SetDefault("nudge.loss_streak_min_run", np.LossStreakMinRun)
	v.SetDefault("nudge.loss_streak_danger_run", np.LossStreakDangerRun)
	v.SetDefault("nudge.instrument_min_trades", np.InstrumentMinTrades)
	v.SetDefault("nudge.instrument_win_rate", np.InstrumentWinRate)
	v.SetDefault("nudge.instrument_danger_win_rate", np.InstrumentDangerWinRate)
	v.SetDefault("nudge.weekday_min_trades", np.WeekdayMinTrades)
	v.SetDefault("nudge.weekday_win_rate", np.WeekdayWinRate)
	v.SetDefault("nudge.weekday_danger_win_rate", np.WeekdayDangerWinRate)
	v.SetDefault("nudge.emotion_min_trades", np.EmotionMinTrades)
	v.SetDefault("nudge.emotion_loss_rate", np.EmotionLossRate)
	v.SetDefault("nudge.emotion_danger_loss_rate", np.EmotionDangerLossRate)

	v.SetDefault("account.balance", 0.0)
	v.SetDefault("account.max_risk_percent", 1.0)

	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.user", "default")

	lc := logging.DefaultLogConfig()
	v.SetDefault("logging.level", lc.Level)
	v.SetDefault("logging.console", lc.Console)
	v.SetDefault("logging.file", lc.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "journal.log"))
	v.SetDefault("logging.max_size", lc.MaxSize)
	v.SetDefault("logging.max_backups", lc.MaxBackups)
	v.SetDefault("logging.max_age", lc.MaxAge)
}

func readConfigFile(v *viper.Viper, configDir, name string) (string, error) {
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return "", err
		}
		// Config file not found, create template
		path, err := createTemplateConfig(configDir, name)
		if err != nil {
			return "", err
		}
		if err := v.ReadInConfig(); err != nil {
			return "", err
		}
		return path, nil
	}
	return v.ConfigFileUsed(), nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("JOURNAL_USER"); v != "" {
		cfg.Storage.User = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.RuleIDs(); err != nil {
		return err
	}
	if c.Engine.RestDaysPerWeek < 0 || c.Engine.RestDaysPerWeek > 7 {
		return apperrors.NewConfigurationError("engine.rest_days_per_week", c.Engine.RestDaysPerWeek, "must be between 0 and 7")
	}
	if !finiteNonNegative(c.Engine.BreakevenEpsilon) {
		return apperrors.NewConfigurationError("engine.breakeven_epsilon", c.Engine.BreakevenEpsilon, "must be a non-negative number")
	}
	if c.Engine.CacheSize < 0 {
		return apperrors.NewConfigurationError("engine.cache_size", c.Engine.CacheSize, "must be non-negative")
	}

	if err := c.Playbook.Validate(); err != nil {
		return err
	}

	if c.Consistency.WindowSize <= 0 {
		return apperrors.NewConfigurationError("consistency.window_size", c.Consistency.WindowSize, "must be positive")
	}
	params, err := c.ConsistencyParams()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}

	if err := c.Nudge.Validate(); err != nil {
		return err
	}

	if !finiteNonNegative(c.Account.Balance) {
		return apperrors.NewConfigurationError("account.balance", c.Account.Balance, "must be a non-negative number")
	}
	if !finiteNonNegative(c.Account.MaxRiskPercent) || c.Account.MaxRiskPercent > 100 {
		return apperrors.NewConfigurationError("account.max_risk_percent", c.Account.MaxRiskPercent, "must be between 0 and 100")
	}

	if c.Storage.DBPath == "" {
		return apperrors.NewConfigurationError("storage.db_path", c.Storage.DBPath, "must be set")
	}
	if c.Storage.User == "" {
		return apperrors.NewConfigurationError("storage.user", c.Storage.User, "must be set")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return apperrors.NewConfigurationError("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}

	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// RuleIDs parses the configured rule enumeration.
func (c *Config) RuleIDs() ([]models.RuleID, error) {
	rules := make([]models.RuleID, 0, len(c.Engine.Rules))
	for _, s := range c.Engine.Rules {
		r, err := models.ParseRule(s)
		if err != nil {
			return nil, apperrors.NewConfigurationError("engine.rules", s, err.Error())
		}
		rules = append(rules, r)
	}
	if err := analysis.ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ConsistencyParams builds the consistency scorer parameters.
func (c *Config) ConsistencyParams() (consistency.Params, error) {
	rules, err := c.RuleIDs()
	if err != nil {
		return consistency.Params{}, err
	}
	return consistency.Params{
		Rules:           rules,
		MinStopDistance: c.Consistency.MinStopDistance,
		JournalingDays:  c.Consistency.JournalingDays,
		Weights:         c.Consistency.Weights,
	}, nil
}

// AccountContext returns the account context, or nil when no balance is configured.
func (c *Config) AccountContext() *consistency.AccountContext {
	if c.Account.Balance <= 0 {
		return nil
	}
	return &consistency.AccountContext{
		Balance:        c.Account.Balance,
		MaxRiskPercent: c.Account.MaxRiskPercent,
	}
}
