package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"turquaz/internal/capacity"
	"turquaz/internal/localstore"
	"turquaz/internal/models"
)

// MealConfig declares one meal period and its fixed ordered slot menu.
type MealConfig struct {
	ID    string   `yaml:"id"`
	Label string   `yaml:"label"`
	Slots []string `yaml:"slots"`
}

type Config struct {
	API struct {
		BaseURL          string `yaml:"base_url"`
		CacheTTLSeconds  int    `yaml:"cache_ttl_seconds"`
		FreshnessSeconds int    `yaml:"freshness_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Booking struct {
		SlotCapacity int          `yaml:"slot_capacity"`
		OpenDays     int          `yaml:"open_days"`
		Meals        []MealConfig `yaml:"meals"`
	} `yaml:"booking"`

	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admin"`

	LocalStore struct {
		Path   string                  `yaml:"path"`
		Backup localstore.BackupConfig `yaml:"backup"`
	} `yaml:"local_store"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// Load reads the YAML config at path, expanding ${ENV_VAR} placeholders.
// An empty path falls back to configs/config.yaml; a missing default file
// yields the stock configuration.
func Load(path string) (*Config, error) {
	usingDefault := path == ""
	if usingDefault {
		path = "configs/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if usingDefault && os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// SlotCapacity returns the configured per-slot guest capacity.
func (c *Config) SlotCapacity() int {
	if c.Booking.SlotCapacity <= 0 {
		return capacity.DefaultSlotCapacity
	}
	return c.Booking.SlotCapacity
}

// OpenDays returns how many days from today are bookable.
func (c *Config) OpenDays() int {
	if c.Booking.OpenDays <= 0 {
		return 21
	}
	return c.Booking.OpenDays
}

// Menus returns the configured meal menus, or the stock ones.
func (c *Config) Menus() models.Menus {
	if len(c.Booking.Meals) == 0 {
		return models.DefaultMenus()
	}
	menus := make(models.Menus, 0, len(c.Booking.Meals))
	for _, m := range c.Booking.Meals {
		menus = append(menus, models.MealMenu{
			ID:    models.Meal(m.ID),
			Label: m.Label,
			Slots: m.Slots,
		})
	}
	return menus
}

// CacheTTL returns the Redis availability-cache TTL; zero disables it.
func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

// Freshness returns how old an occupancy snapshot may be at submit time
// before it is refetched.
func (c *Config) Freshness() time.Duration {
	if c.API.FreshnessSeconds <= 0 {
		return 0 // the gateway applies its default
	}
	return time.Duration(c.API.FreshnessSeconds) * time.Second
}

// LocalStorePath returns the fallback store location.
func (c *Config) LocalStorePath() string {
	if c.LocalStore.Path == "" {
		return "data/turquaz.db"
	}
	return c.LocalStore.Path
}

// AdminUsername returns the local fallback admin username.
func (c *Config) AdminUsername() string {
	if c.Admin.Username == "" {
		return "admin"
	}
	return c.Admin.Username
}

// AdminPassword returns the local fallback admin password.
func (c *Config) AdminPassword() string {
	return c.Admin.Password
}
