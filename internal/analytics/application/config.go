package application

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig defines the aggregation schedule.
type SchedulerConfig struct {
	// DailyAt is the HH:MM time-of-day (UTC) of the daily rollup run.
	DailyAt string `yaml:"daily_at"`
	// HourlyEnabled gates the hourly rollup run.
	HourlyEnabled bool `yaml:"hourly_enabled"`
}

// LoadSchedulerConfig loads the schedule from yaml or env.
func LoadSchedulerConfig() (SchedulerConfig, error) {
	cfg := SchedulerConfig{
		DailyAt:       getenvDefault("AGGREGATION_DAILY_AT", "00:10"),
		HourlyEnabled: true,
	}

	if path := os.Getenv("AGGREGATION_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DailyAt == "" {
		cfg.DailyAt = "00:10"
	}
	if _, err := time.Parse("15:04", cfg.DailyAt); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
