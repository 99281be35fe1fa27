// Package config defines the data structures related to configuration and
// includes functions for loading and checking it.
package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/advisor"
	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/store"
	"github.com/iwvelando/vehicle-finance/pkg/affordability"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/format"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment overrides, e.g. VF_STORE_BACKEND.
const EnvPrefix = "VF"

// Configuration holds all configuration for vehicle-finance.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Profile  plan.UserInput `yaml:"profile"`
	Vehicles []plan.Vehicle `yaml:"vehicles"`
	Schedule ScheduleConfig `yaml:"schedule,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Advisor  AdvisorConfig  `yaml:"advisor,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// ScheduleConfig controls the default payment schedule window.
type ScheduleConfig struct {
	HorizonMonths int `yaml:"horizonMonths,omitempty"`
}

// StoreConfig selects where user records are kept.
type StoreConfig struct {
	Backend string      `yaml:"backend,omitempty"` // memory, redis
	Redis   RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Address   string `yaml:"address,omitempty"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// AdvisorConfig configures the advice endpoint. The API key is read from the
// environment variable named by APIKeyEnv, never from the file.
type AdvisorConfig struct {
	Enabled   bool          `yaml:"enabled,omitempty"`
	URL       string        `yaml:"url,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	APIKeyEnv string        `yaml:"apiKeyEnv,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("schedule.horizonMonths", constants.DefaultHorizonMonths)
	v.SetDefault("store.backend", constants.StoreBackendMemory)
	v.SetDefault("store.redis.address", constants.DefaultRedisAddress)
	v.SetDefault("store.redis.keyPrefix", constants.DefaultRedisKeyPrefix)
	v.SetDefault("advisor.url", advisor.DefaultURL)
	v.SetDefault("advisor.model", advisor.DefaultModel)
	v.SetDefault("advisor.apiKeyEnv", "OPENAI_API_KEY")
	v.SetDefault("advisor.timeout", advisor.DefaultTimeout)
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r, as received
// by the HTTP API.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error parsing config, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate rejects configuration the application cannot run with.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	switch c.Store.Backend {
	case constants.StoreBackendMemory, constants.StoreBackendRedis:
	default:
		return fmt.Errorf("expected store backend of %s or %s, got %s",
			constants.StoreBackendMemory, constants.StoreBackendRedis, c.Store.Backend)
	}
	if c.Schedule.HorizonMonths < 0 {
		return fmt.Errorf("schedule horizon must not be negative, got %d", c.Schedule.HorizonMonths)
	}

	seen := make(map[string]bool, len(c.Vehicles))
	for i, vehicle := range c.Vehicles {
		if vehicle.ID == "" {
			return fmt.Errorf("vehicle %d has no id", i)
		}
		if seen[vehicle.ID] {
			return fmt.Errorf("vehicle id %s is used more than once", vehicle.ID)
		}
		seen[vehicle.ID] = true
		if err := validation.Amount("vehicles."+vehicle.ID+".price", vehicle.Price); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	profile := c.Profile

	priceRange, err := affordability.Estimate(profile.Income, profile.CreditScore, profile.DownPayment, profile.LoanTermYears)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Profile cannot be evaluated: %v", err))
	}

	eligible := 0
	for _, vehicle := range c.Vehicles {
		name := vehicle.Model
		if name == "" {
			name = vehicle.ID
		}
		if profile.MinSeats > 0 && vehicle.Seats > 0 && vehicle.Seats < profile.MinSeats {
			warnings = append(warnings, fmt.Sprintf("Vehicle '%s' seats %d, fewer than the %d required", name, vehicle.Seats, profile.MinSeats))
			continue
		}
		eligible++
		if profile.DownPayment >= vehicle.Price {
			warnings = append(warnings, fmt.Sprintf("Down payment %s covers the whole price of '%s' (%s)",
				format.Currency(profile.DownPayment), name, format.Currency(vehicle.Price)))
		}
		if err == nil && vehicle.Price > priceRange.Max {
			warnings = append(warnings, fmt.Sprintf("Vehicle '%s' at %s is above the affordable maximum of %s",
				name, format.Currency(vehicle.Price), format.Currency(priceRange.Max)))
		}
	}
	if len(c.Vehicles) > 0 && eligible == 0 {
		warnings = append(warnings, "No vehicle meets the seating requirement")
	}

	if c.Advisor.Enabled && c.AdvisorAPIKey() == "" {
		warnings = append(warnings, fmt.Sprintf("Advisor is enabled but %s is not set; advice will use the fallback summary", c.Advisor.APIKeyEnv))
	}
	return warnings
}

// HorizonMonths returns the configured schedule window.
func (c *Configuration) HorizonMonths() int {
	if c.Schedule.HorizonMonths <= 0 {
		return constants.DefaultHorizonMonths
	}
	return c.Schedule.HorizonMonths
}

// AdvisorAPIKey reads the advisor key from the environment.
func (c *Configuration) AdvisorAPIKey() string {
	if c.Advisor.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Advisor.APIKeyEnv)
}

// AdvisorOptions converts the advisor section for advisor.New.
func (c *Configuration) AdvisorOptions() advisor.Options {
	return advisor.Options{
		Enabled: c.Advisor.Enabled,
		URL:     c.Advisor.URL,
		Model:   c.Advisor.Model,
		APIKey:  c.AdvisorAPIKey(),
		Timeout: c.Advisor.Timeout,
	}
}

// OpenStore opens the configured store backend.
func (c *Configuration) OpenStore(ctx context.Context, logger *zap.Logger) (store.Store, error) {
	if c.Store.Backend != constants.StoreBackendRedis {
		return store.NewMemory(), nil
	}
	return store.ConnectRedis(ctx, store.RedisOptions{
		Address:   c.Store.Redis.Address,
		Password:  c.Store.Redis.Password,
		DB:        c.Store.Redis.DB,
		KeyPrefix: c.Store.Redis.KeyPrefix,
	}, logger)
}
