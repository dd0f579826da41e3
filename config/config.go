// Package config loads compiler settings from defaults, an optional config
// file, a .env file, TILEBAKE_* environment variables and command-line
// overrides, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TILEBAKE"

type Config struct {
	Padding        int    `mapstructure:"padding"`
	MaxAtlasSize   int    `mapstructure:"max_atlas_size"`
	Prefix         string `mapstructure:"prefix"`
	SceneFormat    string `mapstructure:"scene_format"`
	SceneName      string `mapstructure:"scene_name"`
	SheetName      string `mapstructure:"sheet_name"`
	TextureName    string `mapstructure:"texture_name"`
	Rules          string `mapstructure:"rules"`
	Script         string `mapstructure:"script"`
	MergeColliders bool   `mapstructure:"merge_colliders"`
	CacheBytes     int64  `mapstructure:"cache_bytes"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	LogFile        string `mapstructure:"log_file"`
}

var defaults = map[string]any{
	"padding":         4,
	"max_atlas_size":  8192,
	"prefix":          "",
	"scene_format":    "yaml",
	"scene_name":      "map",
	"sheet_name":      "map_sprite_sheet_%d",
	"texture_name":    "sprite_sheet_%d",
	"rules":           "",
	"script":          "",
	"merge_colliders": false,
	"cache_bytes":     int64(256 << 20),
	"log_level":       "info",
	"log_format":      "text",
	"log_file":        "",
}

// Default resolves settings from the built-in defaults and the environment.
func Default() Config {
	cfg, _ := Load("", "", nil)
	return cfg
}

// Load resolves the settings. file is an optional YAML/JSON/TOML config
// file; envFile is a dotenv file that is ignored when absent. overrides are
// applied last, keyed like the config file.
func Load(file, envFile string, overrides map[string]any) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Padding < 0 {
		return fmt.Errorf("config: padding %d is negative", c.Padding)
	}
	if c.MaxAtlasSize < 0 {
		return fmt.Errorf("config: max_atlas_size %d is negative", c.MaxAtlasSize)
	}
	switch strings.ToLower(c.SceneFormat) {
	case "yaml", "yml", "json":
	default:
		return fmt.Errorf("config: unknown scene_format %q", c.SceneFormat)
	}
	if c.SceneName == "" {
		return fmt.Errorf("config: scene_name is empty")
	}
	for key, pattern := range map[string]string{"sheet_name": c.SheetName, "texture_name": c.TextureName} {
		if strings.Count(pattern, "%d") != 1 {
			return fmt.Errorf("config: %s %q must contain exactly one %%d", key, pattern)
		}
	}
	return nil
}
