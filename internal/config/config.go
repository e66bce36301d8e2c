package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/greenhaul/route-planner/internal/match"
)

// Config holds the full application configuration.
type Config struct {
	Depot   DepotConfig   `yaml:"depot" mapstructure:"depot"`
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	OSRM    OSRMConfig    `yaml:"osrm" mapstructure:"osrm"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DepotConfig locates the route origin.
type DepotConfig struct {
	Name      string  `yaml:"name" mapstructure:"name"`
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
}

// InputConfig names the order sheet and the customer reference database.
type InputConfig struct {
	OrderSheet  string `yaml:"order_sheet" mapstructure:"order_sheet"`
	SheetName   string `yaml:"sheet_name" mapstructure:"sheet_name"`
	CustomerDB  string `yaml:"customer_db" mapstructure:"customer_db"`
	DBDelimiter string `yaml:"db_delimiter" mapstructure:"db_delimiter"`
	DBEncoding  string `yaml:"db_encoding" mapstructure:"db_encoding"`
}

// MatchConfig configures fuzzy name matching.
type MatchConfig struct {
	Threshold   float64  `yaml:"threshold" mapstructure:"threshold"`
	CommonTerms []string `yaml:"common_terms" mapstructure:"common_terms"`
}

// GeocodeConfig configures the postal-code coordinate source.
type GeocodeConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	PacingMs    int    `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OSRMConfig configures the trip optimizer.
type OSRMConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Profile     string `yaml:"profile" mapstructure:"profile"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OutputConfig configures the generated documents.
type OutputConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	TruckLabel   string `yaml:"truck_label" mapstructure:"truck_label"`
	SummaryImage string `yaml:"summary_image" mapstructure:"summary_image"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("depot.name", "Depot")
	v.SetDefault("depot.latitude", 43.91835625149449)
	v.SetDefault("depot.longitude", 10.972482955970866)
	v.SetDefault("input.order_sheet", "Costi.xlsx")
	v.SetDefault("input.sheet_name", "Foglio1")
	v.SetDefault("input.customer_db", "Z - Dati/CLIENTI_FAT.csv")
	v.SetDefault("input.db_delimiter", ";")
	v.SetDefault("input.db_encoding", "utf-8")
	v.SetDefault("match.threshold", 0.79)
	v.SetDefault("match.common_terms", match.DefaultCommonTerms)
	v.SetDefault("geocode.base_url", "https://download.geonames.org/export/zip")
	v.SetDefault("geocode.data_dir", ".cache/geonames")
	v.SetDefault("geocode.pacing_ms", 2000)
	v.SetDefault("geocode.concurrency", 1)
	v.SetDefault("geocode.timeout_secs", 60)
	v.SetDefault("osrm.base_url", "http://router.project-osrm.org")
	v.SetDefault("osrm.profile", "driving")
	v.SetDefault("osrm.timeout_secs", 60)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.truck_label", "Camion <DATA>")
	v.SetDefault("output.summary_image", "001.png")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "route-planner.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "plan", "resolve" and "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "plan":
		problems = append(problems, c.validateInput()...)
		problems = append(problems, c.validateGeocode()...)
		if c.OSRM.BaseURL == "" {
			problems = append(problems, "osrm.base_url is required")
		}
		if c.OSRM.Profile == "" {
			problems = append(problems, "osrm.profile is required")
		}
		if c.OSRM.TimeoutSecs <= 0 {
			problems = append(problems, "osrm.timeout_secs must be > 0")
		}
		if c.Output.Dir == "" {
			problems = append(problems, "output.dir is required")
		}
		if !validLatLon(c.Depot.Latitude, c.Depot.Longitude) {
			problems = append(problems, "depot.latitude/longitude out of range")
		}
	case "resolve":
		problems = append(problems, c.validateInput()...)
		problems = append(problems, c.validateGeocode()...)
	case "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q not supported (sqlite, postgres)", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateInput() []string {
	var problems []string
	if c.Input.OrderSheet == "" {
		problems = append(problems, "input.order_sheet is required")
	}
	if c.Input.CustomerDB == "" {
		problems = append(problems, "input.customer_db is required")
	}
	if len([]rune(c.Input.DBDelimiter)) != 1 {
		problems = append(problems, "input.db_delimiter must be a single character")
	}
	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		problems = append(problems, "match.threshold must be between 0 and 1")
	}
	return problems
}

func (c *Config) validateGeocode() []string {
	var problems []string
	if c.Geocode.BaseURL == "" {
		problems = append(problems, "geocode.base_url is required")
	}
	if c.Geocode.PacingMs < 0 {
		problems = append(problems, "geocode.pacing_ms must be >= 0")
	}
	if c.Geocode.Concurrency < 1 || c.Geocode.Concurrency > 16 {
		problems = append(problems, "geocode.concurrency must be between 1 and 16")
	}
	if c.Geocode.TimeoutSecs <= 0 {
		problems = append(problems, "geocode.timeout_secs must be > 0")
	}
	return problems
}

func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
