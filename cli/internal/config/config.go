// Package config loads the bdb command line configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/baltrad/bdb-go/internal/storage"
)

var AppFs = afero.NewOsFs()

const (
	configName = ".bdb"
	envPrefix  = "BDB"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	StorageType string
	StoragePath string
	MaxConns    int
	CacheSize   int
	Debug       bool
	JSONLog     bool
}

func newViper(home string) *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "bdb"))

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		url = "sqlite://" + filepath.Join(home, ".bdb", "bdb.db")
	}
	v.SetDefault("database_url", url)
	v.SetDefault("storage_type", string(storage.TypeFilesystem))
	v.SetDefault("storage_path", filepath.Join(home, ".bdb", "content"))
	v.SetDefault("max_conns", 4)
	v.SetDefault("cache_size", 256)
	v.SetDefault("debug", false)
	v.SetDefault("json_log", false)
	return v
}

// LoadConfig loads configuration from configFile when given, otherwise
// from .bdb.yaml in the working directory, the home directory or
// ~/.config/bdb. BDB_* environment variables override the file, which
// overrides DATABASE_URL. .env and .env.local are loaded into the
// environment first.
func LoadConfig(configFile string) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	loadDotEnv()

	v := newViper(home)
	if configFile != "" {
		path, err := homedir.Expand(configFile)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		StorageType: v.GetString("storage_type"),
		StoragePath: v.GetString("storage_path"),
		MaxConns:    v.GetInt("max_conns"),
		CacheSize:   v.GetInt("cache_size"),
		Debug:       v.GetBool("debug"),
		JSONLog:     v.GetBool("json_log"),
	}
	if cfg.StoragePath, err = homedir.Expand(cfg.StoragePath); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() {
	// Missing or unreadable files are ignored.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

// SaveConfig writes cfg to path, or to ~/.config/bdb/.bdb.yaml when path
// is empty, and returns the file written
func SaveConfig(cfg *Config, path string) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(home, ".config", "bdb", configName+".yaml")
	}
	if err := AppFs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.Set("database_url", cfg.DatabaseURL)
	v.Set("storage_type", cfg.StorageType)
	v.Set("storage_path", cfg.StoragePath)
	v.Set("max_conns", cfg.MaxConns)
	v.Set("cache_size", cfg.CacheSize)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// Storage opens the configured content store
func (c *Config) Storage() (storage.Storage, error) {
	return storage.New(&storage.Config{
		Type:     storage.Type(c.StorageType),
		BasePath: c.StoragePath,
	})
}
