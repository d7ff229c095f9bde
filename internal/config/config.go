package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emnt/spacesync/internal/utils"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

const (
	DriverSqlite = "sqlite"
	DriverBadger = "badger"
)

var (
	home, _            = os.UserHomeDir()
	DefaultDataDir     = filepath.Join(home, ".spacesync")
	DefaultAddr        = "localhost:7939"
	DefaultRate        = "20-S"
	DefaultInterval    = 5 * time.Second
	DefaultBatchSize   = 10
	DefaultCountWait   = 2 * time.Minute
	DefaultTransientTT = time.Hour
)

type Config struct {
	Path       string       `mapstructure:"-"`
	DataDir    string       `mapstructure:"data_dir"`
	UploadsDir string       `mapstructure:"uploads_dir"`
	UploadsURL string       `mapstructure:"uploads_url"`
	LogFile    string       `mapstructure:"log_file"`
	HTTP       HTTPConfig   `mapstructure:"http"`
	State      StateConfig  `mapstructure:"state"`
	Sync       SyncConfig   `mapstructure:"sync"`
	Spaces     SpacesConfig `mapstructure:"spaces"`
}

type HTTPConfig struct {
	Addr  string `mapstructure:"addr"`
	Token string `mapstructure:"token"`
	Rate  string `mapstructure:"rate"`
}

type StateConfig struct {
	Driver       string        `mapstructure:"driver"`
	TransientTTL time.Duration `mapstructure:"transient_ttl"`
}

type SyncConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	CountTimeout time.Duration `mapstructure:"count_timeout"`
}

// SpacesConfig seeds the stored Spaces settings. Credentials set here always win over stored ones.
type SpacesConfig struct {
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	SpaceName     string `mapstructure:"space_name"`
	Region        string `mapstructure:"region"`
	CDNURL        string `mapstructure:"cdn_url"`
	Endpoint      string `mapstructure:"endpoint"`
	Driver        string `mapstructure:"driver"`
	UseSubfolder  bool   `mapstructure:"use_subfolder"`
	SubfolderName string `mapstructure:"subfolder_name"`
}

// SetDefaults registers every default on v so env vars and AutomaticEnv can see the keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("uploads_dir", "")
	v.SetDefault("uploads_url", "")
	v.SetDefault("log_file", "")
	v.SetDefault("http.addr", DefaultAddr)
	v.SetDefault("http.token", "")
	v.SetDefault("http.rate", DefaultRate)
	v.SetDefault("state.driver", DriverSqlite)
	v.SetDefault("state.transient_ttl", DefaultTransientTT)
	v.SetDefault("sync.interval", DefaultInterval)
	v.SetDefault("sync.batch_size", DefaultBatchSize)
	v.SetDefault("sync.count_timeout", DefaultCountWait)
	v.SetDefault("spaces.access_key", "")
	v.SetDefault("spaces.secret_key", "")
	v.SetDefault("spaces.space_name", "")
	v.SetDefault("spaces.region", "")
	v.SetDefault("spaces.cdn_url", "")
	v.SetDefault("spaces.endpoint", "")
	v.SetDefault("spaces.driver", "")
	v.SetDefault("spaces.use_subfolder", false)
	v.SetDefault("spaces.subfolder_name", "")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var err error

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DataDir, err = utils.ResolvePath(c.DataDir); err != nil {
		return fmt.Errorf("config `data_dir`: %w", err)
	}

	if c.UploadsDir == "" {
		return errors.New("config `uploads_dir` is required")
	}
	if c.UploadsDir, err = utils.ResolvePath(c.UploadsDir); err != nil {
		return fmt.Errorf("config `uploads_dir`: %w", err)
	}
	if utils.FileExists(c.UploadsDir) {
		return fmt.Errorf("config `uploads_dir` %q is a file", c.UploadsDir)
	}

	if c.UploadsURL != "" && !utils.IsValidURL(c.UploadsURL) {
		return fmt.Errorf("config `uploads_url` must be an http(s) url, got %q", c.UploadsURL)
	}
	c.UploadsURL = strings.TrimRight(c.UploadsURL, "/")

	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "logs", "spacesync.log")
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.HTTP.Rate == "" {
		c.HTTP.Rate = DefaultRate
	}
	if _, err := limiter.NewRateFromFormatted(c.HTTP.Rate); err != nil {
		return fmt.Errorf("config `http.rate`: %w", err)
	}

	switch c.State.Driver {
	case "":
		c.State.Driver = DriverSqlite
	case DriverSqlite, DriverBadger:
	default:
		return fmt.Errorf("config `state.driver` must be %q or %q, got %q", DriverSqlite, DriverBadger, c.State.Driver)
	}
	if c.State.TransientTTL <= 0 {
		c.State.TransientTTL = DefaultTransientTT
	}

	if c.Sync.Interval <= 0 {
		return errors.New("config `sync.interval` must be positive")
	}
	if c.Sync.BatchSize <= 0 {
		return errors.New("config `sync.batch_size` must be positive")
	}
	if c.Sync.CountTimeout <= 0 {
		c.Sync.CountTimeout = DefaultCountWait
	}

	return nil
}

func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, "state.db")
}

func (c *Config) BadgerDir() string {
	return filepath.Join(c.DataDir, "badger")
}

func (c *Config) LockDir() string {
	return filepath.Join(c.DataDir, "locks")
}
