package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Config holds the defaults applied to burn and the logging level.
type Config struct {
	Eject        bool   `json:"eject"`
	ShowProgress bool   `json:"show_progress"`
	UserData     string `json:"user_data"`
	MetaData     string `json:"meta_data"`
	LogLevel     string `json:"log_level"`
}

// Keys lists the settable config keys in display order.
var Keys = []string{"eject", "show_progress", "user_data", "meta_data", "log_level"}

var logLevels = []string{"debug", "info", "warn", "error"}

var (
	// ConfigFile is resolved by InitConfig; RPIBURN_CONFIG overrides it.
	ConfigFile string
	config     *Config
)

func defaults() *Config {
	return &Config{Eject: true, ShowProgress: true, LogLevel: "warn"}
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv("RPIBURN_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "rpiburn", "config.json"), nil
}

// InitConfig loads .env from the working directory if present, then the
// config file. A missing config file leaves the defaults in place.
func InitConfig() error {
	_ = godotenv.Load()

	path, err := Path()
	if err != nil {
		return err
	}
	ConfigFile = path
	config = defaults()

	data, err := os.ReadFile(ConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		applyEnv(config)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config %s: %w", ConfigFile, err)
	}
	applyEnv(config)
	return nil
}

// applyEnv lets RPIBURN_LOG_LEVEL override the file for one run.
func applyEnv(c *Config) {
	if lvl := os.Getenv("RPIBURN_LOG_LEVEL"); lvl != "" {
		c.LogLevel = strings.ToLower(lvl)
	}
}

// GetConfig returns the loaded config, or defaults if InitConfig was not called.
func GetConfig() *Config {
	if config == nil {
		config = defaults()
	}
	return config
}

// SaveConfig writes the current config to ConfigFile.
func SaveConfig() error {
	if ConfigFile == "" {
		path, err := Path()
		if err != nil {
			return err
		}
		ConfigFile = path
	}
	data, err := json.MarshalIndent(GetConfig(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(ConfigFile), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(ConfigFile, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Set parses value for key and saves the config.
func Set(key, value string) error {
	c := GetConfig()
	switch key {
	case "eject", "show_progress":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		if key == "eject" {
			c.Eject = b
		} else {
			c.ShowProgress = b
		}
	case "user_data", "meta_data":
		if value != "" {
			abs, err := filepath.Abs(value)
			if err != nil {
				return err
			}
			value = abs
		}
		if key == "user_data" {
			c.UserData = value
		} else {
			c.MetaData = value
		}
	case "log_level":
		value = strings.ToLower(value)
		if !lo.Contains(logLevels, value) {
			return fmt.Errorf("log_level: expected one of %s, got %q", strings.Join(logLevels, ", "), value)
		}
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return SaveConfig()
}

// Get returns the display value of key.
func Get(key string) (string, error) {
	c := GetConfig()
	switch key {
	case "eject":
		return strconv.FormatBool(c.Eject), nil
	case "show_progress":
		return strconv.FormatBool(c.ShowProgress), nil
	case "user_data":
		return c.UserData, nil
	case "meta_data":
		return c.MetaData, nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
}
