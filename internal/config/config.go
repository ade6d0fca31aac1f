package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the CLI reads
const EnvPrefix = "CHATFOLD"

// Config keys
const (
	KeyServerURL    = "server_url"
	KeyWorkspace    = "workspace"
	KeyUserID       = "user_id"
	KeyMode         = "mode"
	KeyDBPath       = "db_path"
	KeyCacheDir     = "cache_dir"
	KeyLogDir       = "log_dir"
	KeyRecentWindow = "recent_window"
	KeyVerbose      = "verbose"
)

// Config is the resolved CLI configuration
type Config struct {
	ServerURL    string        `mapstructure:"server_url"`
	Workspace    string        `mapstructure:"workspace"`
	UserID       string        `mapstructure:"user_id"`
	Mode         string        `mapstructure:"mode"`
	DBPath       string        `mapstructure:"db_path"`
	CacheDir     string        `mapstructure:"cache_dir"`
	LogDir       string        `mapstructure:"log_dir"`
	RecentWindow time.Duration `mapstructure:"recent_window"`
	Verbose      bool          `mapstructure:"verbose"`
}

// DefaultDir returns ~/.chatfold, the home of the thread database, the
// transcript cache and the optional config file
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatfold"
	}
	return filepath.Join(home, ".chatfold")
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	dir := DefaultDir()
	v.SetDefault(KeyServerURL, "ws://localhost:8080/ws")
	v.SetDefault(KeyWorkspace, "default")
	v.SetDefault(KeyUserID, "")
	v.SetDefault(KeyMode, "agent")
	v.SetDefault(KeyDBPath, filepath.Join(dir, "threads.db"))
	v.SetDefault(KeyCacheDir, filepath.Join(dir, "cache"))
	v.SetDefault(KeyLogDir, "")
	v.SetDefault(KeyRecentWindow, 30*time.Second)
	v.SetDefault(KeyVerbose, false)
}

// LoadDotEnv loads .env style files into the environment. Missing files are
// ignored and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load resolves the configuration from defaults, the config file, CHATFOLD_*
// environment variables and any flags already bound to v, lowest to highest.
// With configFile empty, chatfold.yaml is looked up in the working directory
// and DefaultDir, and a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("chatfold")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.RecentWindow <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyRecentWindow, c.RecentWindow)
	}
	if strings.TrimSpace(c.Workspace) == "" {
		return fmt.Errorf("%s must not be empty", KeyWorkspace)
	}
	return nil
}
