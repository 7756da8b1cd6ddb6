/*
Package config manages TOML config for NickServe.
*/
package config

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/nickserve/internal/utils"
)

// FileName is the config file looked up in the config directory.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Setup      SetupConfig      `toml:"setup"`
	Server     ServerConfig     `toml:"server"`
	CLI        CliConfig        `toml:"cli"`
}

// CompletionConfig holds the ranking and auto-complete options.
type CompletionConfig struct {
	OwnWindow     int    `toml:"own_window"`
	KeepPublics   int    `toml:"keep_publics"`
	KeepPrivates  int    `toml:"keep_privates"`
	Lowercase     bool   `toml:"lowercase"`
	Strict        bool   `toml:"strict"`
	Char          string `toml:"char"`
	Auto          bool   `toml:"auto"`
	ExpandEscapes bool   `toml:"expand_escapes"`
	CmdChars      string `toml:"cmdchars"`
}

// SetupConfig lists configured names offered by completion even when they
// are not currently joined or connected.
type SetupConfig struct {
	Channels []string `toml:"channels"`
	Chatnets []string `toml:"chatnets"`
	Servers  []string `toml:"servers"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit    int  `toml:"max_limit"`
	RateLimit   int  `toml:"rate_limit"`
	RateBurst   int  `toml:"rate_burst"`
	WatchConfig bool `toml:"watch_config"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Completion: CompletionConfig{
			OwnWindow:    50,
			KeepPublics:  50,
			KeepPrivates: 10,
			Char:         ":",
			CmdChars:     "/",
		},
		Setup: SetupConfig{
			Channels: []string{},
			Chatnets: []string{},
			Servers:  []string{},
		},
		Server: ServerConfig{
			MaxLimit:    64,
			RateBurst:   32,
			WatchConfig: true,
		},
		CLI: CliConfig{
			DefaultLimit: 24,
		},
	}
}

// AutoComplete reports whether auto-complete on send is active. It is forced
// off when the completion char is empty, since there would be no marker to
// split the line on.
func (c CompletionConfig) AutoComplete() bool {
	return c.Auto && c.Char != ""
}

// CmdChar returns the first command character, "/" if none is configured.
func (c CompletionConfig) CmdChar() string {
	for _, r := range c.CmdChars {
		return string(r)
	}
	return "/"
}

// Normalize clamps values that would make no sense at runtime.
func (c *Config) Normalize() {
	comp := &c.Completion
	if comp.Auto && comp.Char == "" {
		log.Warn("completion char is empty, auto-complete disabled")
	}
	comp.OwnWindow = max(comp.OwnWindow, 0)
	comp.KeepPublics = max(comp.KeepPublics, 0)
	comp.KeepPrivates = max(comp.KeepPrivates, 0)
	c.Server.MaxLimit = max(c.Server.MaxLimit, 0)
	c.Server.RateLimit = max(c.Server.RateLimit, 0)
	if c.Server.RateBurst < 1 {
		c.Server.RateBurst = 1
	}
	if c.CLI.DefaultLimit < 0 {
		c.CLI.DefaultLimit = 0
	}
}

// GetConfigDir returns the preferred config directory for the user.
func GetConfigDir() (string, error) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		return "", err
	}
	return pr.GetConfigDir(), nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		return "", err
	}
	return pr.GetConfigPath(FileName)
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/nickserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customConfigPath)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. A file that does not decode cleanly is
// parsed section by section so valid settings still apply. A file with no
// usable content yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config, err := loadStrict(configPath)
	if err != nil {
		log.Warnf("Using all defaults instead of %s", configPath)
		config = DefaultConfig()
		config.Normalize()
	}
	return config, nil
}

// loadStrict is LoadConfig without the fallback: it fails when the file
// cannot be parsed at all, so a running server can keep its current config.
func loadStrict(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.Normalize()
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if section, ok := utils.ExtractSection(tempConfig, "completion"); ok {
		extractCompletionConfig(section, &config.Completion)
	}
	if section, ok := utils.ExtractSection(tempConfig, "setup"); ok {
		extractSetupConfig(section, &config.Setup)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	config.Normalize()
	return config, nil
}

func extractCompletionConfig(data map[string]any, comp *CompletionConfig) {
	if val, ok := utils.ExtractInt64(data, "own_window"); ok {
		comp.OwnWindow = val
	}
	if val, ok := utils.ExtractInt64(data, "keep_publics"); ok {
		comp.KeepPublics = val
	}
	if val, ok := utils.ExtractInt64(data, "keep_privates"); ok {
		comp.KeepPrivates = val
	}
	if val, ok := utils.ExtractBool(data, "lowercase"); ok {
		comp.Lowercase = val
	}
	if val, ok := utils.ExtractBool(data, "strict"); ok {
		comp.Strict = val
	}
	if val, ok := utils.ExtractString(data, "char"); ok {
		comp.Char = val
	}
	if val, ok := utils.ExtractBool(data, "auto"); ok {
		comp.Auto = val
	}
	if val, ok := utils.ExtractBool(data, "expand_escapes"); ok {
		comp.ExpandEscapes = val
	}
	if val, ok := utils.ExtractString(data, "cmdchars"); ok {
		comp.CmdChars = val
	}
}

func extractSetupConfig(data map[string]any, setup *SetupConfig) {
	if val, ok := utils.ExtractStrings(data, "channels"); ok {
		setup.Channels = val
	}
	if val, ok := utils.ExtractStrings(data, "chatnets"); ok {
		setup.Chatnets = val
	}
	if val, ok := utils.ExtractStrings(data, "servers"); ok {
		setup.Servers = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "rate_limit"); ok {
		server.RateLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "rate_burst"); ok {
		server.RateBurst = val
	}
	if val, ok := utils.ExtractBool(data, "watch_config"); ok {
		server.WatchConfig = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
