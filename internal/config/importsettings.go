package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ImportSettings tunes the activity import runs. Reloadable at runtime so a
// lookback change does not need a redeploy.
type ImportSettings struct {
	LookbackDays  int    `mapstructure:"lookbackDays"`
	StageBatch    int    `mapstructure:"stageBatch"`
	Schedule      string `mapstructure:"schedule"`
	LockTTLMin    int    `mapstructure:"lockTtlMinutes"`
	SurveysPerRun int    `mapstructure:"surveysPerRun"`
}

func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		LookbackDays:  6,
		StageBatch:    500,
		Schedule:      "0 3 * * *",
		LockTTLMin:    60,
		SurveysPerRun: 500,
	}
}

// ImportSettingsHolder serves the current settings snapshot and hot-reloads
// it when the config file changes.
type ImportSettingsHolder struct {
	current atomic.Value // holds ImportSettings
}

func NewImportSettingsHolder() (*ImportSettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("import")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/officepulse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OFFICEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultImportSettings()
		v.SetDefault("import.lookbackDays", defaults.LookbackDays)
		v.SetDefault("import.stageBatch", defaults.StageBatch)
		v.SetDefault("import.schedule", defaults.Schedule)
		v.SetDefault("import.lockTtlMinutes", defaults.LockTTLMin)
		v.SetDefault("import.surveysPerRun", defaults.SurveysPerRun)
	}

	var settings ImportSettings
	if err := v.UnmarshalKey("import", &settings); err != nil {
		return nil, err
	}
	if err := validateImportSettings(settings); err != nil {
		return nil, err
	}

	holder := &ImportSettingsHolder{}
	holder.current.Store(settings)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ImportSettings
		if err := v.UnmarshalKey("import", &updated); err != nil {
			log.Printf("[import-settings] reload failed: %v", err)
			return
		}
		if err := validateImportSettings(updated); err != nil {
			log.Printf("[import-settings] invalid settings ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[import-settings] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticImportSettings wraps a fixed snapshot. For tests and one-shot
// tools that do not watch a config file.
func NewStaticImportSettings(s ImportSettings) *ImportSettingsHolder {
	h := &ImportSettingsHolder{}
	h.current.Store(s)
	return h
}

func (h *ImportSettingsHolder) Get() ImportSettings {
	return h.current.Load().(ImportSettings)
}

func validateImportSettings(s ImportSettings) error {
	if s.LookbackDays < 1 || s.LookbackDays > 28 {
		return errors.New("import.lookbackDays must be between 1 and 28")
	}
	if s.StageBatch < 1 {
		return errors.New("import.stageBatch must be positive")
	}
	if strings.TrimSpace(s.Schedule) == "" {
		return errors.New("import.schedule cannot be empty")
	}
	return nil
}
