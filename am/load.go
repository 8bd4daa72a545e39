package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/werelate/dqa/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// explicitConfigPath is set by the --config flag and outranks discovered files
var explicitConfigPath string

// UseConfigFile makes path the highest-precedence config file.
// Must be called before the first Load.
func UseConfigFile(path string) {
	explicitConfigPath = path
	Reset()
}

// Load reads the dqa configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v, err := initViper()
	if err != nil {
		return nil, err
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() (*viper.Viper, error) {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Defaults only, no environment binding for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() (*viper.Viper, error) {
	if viperInstance != nil {
		return viperInstance, nil
	}

	v := viper.New()

	v.SetEnvPrefix("DQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)

	SetDefaults(v)

	if err := mergeConfigFiles(v, ConfigPaths()); err != nil {
		return nil, err
	}

	viperInstance = v
	return v, nil
}

// ConfigPaths lists candidate config files, lowest precedence first.
func ConfigPaths() []string {
	paths := []string{"/etc/dqa/am.toml"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".dqa", "am.toml"))
	}
	if projectConfig := findProjectConfig(); projectConfig != "" {
		paths = append(paths, projectConfig)
	}
	if explicitConfigPath != "" {
		paths = append(paths, explicitConfigPath)
	}
	return paths
}

// findProjectConfig searches for am.toml by walking up the directory tree
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges existing files into v in the given order.
// Missing discovered files are skipped; a missing explicit file is an error.
func mergeConfigFiles(v *viper.Viper, configPaths []string) error {
	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err != nil {
			if configPath == explicitConfigPath {
				return errors.Wrapf(err, "config file %s", configPath)
			}
			continue
		}

		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "failed to merge config file %s", configPath)
		}
	}
	return nil
}
