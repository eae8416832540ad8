// Package config loads settings for the adv2 command.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file given with --config, ADV2_* environment variables (ADV2_LOG_LEVEL
// for log.level) and command line flags bound to the viper instance.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Neumenon/adv2/dupe"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "ADV2"

// Split modes.
const (
	ModeEntities = "entities"
	ModeTable    = "table"
)

// Keys.
const (
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyCodecMaxPayload = "codec.max_payload"
	KeyCodecMaxDepth   = "codec.max_depth"
	KeyCodecMaxInfo    = "codec.max_info"
	KeyCodecDictCap    = "codec.dict_cap"
	KeySplitChunks     = "split.chunks"
	KeySplitOutDir     = "split.out_dir"
	KeySplitMode       = "split.mode"
	KeySplitWorkers    = "split.workers"
)

type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Codec CodecConfig `mapstructure:"codec"`
	Split SplitConfig `mapstructure:"split"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CodecConfig struct {
	MaxPayload int64 `mapstructure:"max_payload"`
	MaxDepth   int   `mapstructure:"max_depth"`
	MaxInfo    int   `mapstructure:"max_info"`
	DictCap    int   `mapstructure:"dict_cap"`
}

type SplitConfig struct {
	// Chunks is the number of output files.
	Chunks int `mapstructure:"chunks"`

	// OutDir is where chunk files are written. Empty means next to the input.
	OutDir string `mapstructure:"out_dir"`

	// Mode is "entities" to split the Entities table of a dupe, or "table"
	// to split the root table as is.
	Mode string `mapstructure:"mode"`

	// Workers bounds concurrent chunk encoding. Zero means one per chunk.
	Workers int `mapstructure:"workers"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "plain")
	v.SetDefault(KeyCodecMaxPayload, int64(dupe.DefaultMaxPayload))
	v.SetDefault(KeyCodecMaxDepth, dupe.DefaultMaxDepth)
	v.SetDefault(KeyCodecMaxInfo, dupe.DefaultMaxInfo)
	v.SetDefault(KeyCodecDictCap, dupe.DefaultDictCap)
	v.SetDefault(KeySplitChunks, 2)
	v.SetDefault(KeySplitOutDir, "")
	v.SetDefault(KeySplitMode, ModeEntities)
	v.SetDefault(KeySplitWorkers, 0)
}

// Load reads file (if not empty) and the environment into v and decodes the
// result. Flags must be bound to v before calling Load.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Codec.MaxPayload <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyCodecMaxPayload, c.Codec.MaxPayload)
	case c.Codec.MaxDepth <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyCodecMaxDepth, c.Codec.MaxDepth)
	case c.Codec.MaxInfo <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyCodecMaxInfo, c.Codec.MaxInfo)
	case c.Codec.DictCap <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyCodecDictCap, c.Codec.DictCap)
	case c.Split.Chunks < 1:
		return fmt.Errorf("%s must be at least 1, got %d", KeySplitChunks, c.Split.Chunks)
	case c.Split.Workers < 0:
		return fmt.Errorf("%s must not be negative, got %d", KeySplitWorkers, c.Split.Workers)
	}
	switch c.Split.Mode {
	case ModeEntities, ModeTable:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", KeySplitMode, ModeEntities, ModeTable, c.Split.Mode)
	}
	return nil
}

// CodecOptions converts the codec section to dupe options.
func (c *Config) CodecOptions() []dupe.Option {
	return []dupe.Option{
		dupe.WithMaxPayload(c.Codec.MaxPayload),
		dupe.WithMaxDepth(c.Codec.MaxDepth),
		dupe.WithMaxInfo(c.Codec.MaxInfo),
		dupe.WithCompressionDict(c.Codec.DictCap),
	}
}
