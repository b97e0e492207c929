// Package config loads irplayer settings from flags, environment
// variables and an optional YAML file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable names, for example
// IRPLAYER_ENGINE_PARTITION_SIZE.
const EnvPrefix = "IRPLAYER"

// Settings is the complete irplayer configuration.
type Settings struct {
	IR          string  `mapstructure:"ir"`
	Mix         float64 `mapstructure:"mix"`
	MetricsAddr string  `mapstructure:"metrics_addr"`

	Engine EngineSettings `mapstructure:"engine"`
	Audio  AudioSettings  `mapstructure:"audio"`
	Render RenderSettings `mapstructure:"render"`
	Live   LiveSettings   `mapstructure:"live"`
	Log    LogSettings    `mapstructure:"log"`
}

// EngineSettings configures the convolution engine.
type EngineSettings struct {
	PartitionSize int  `mapstructure:"partition_size"`
	Trim          bool `mapstructure:"trim"`
	Normalize     bool `mapstructure:"normalize"`
}

// AudioSettings is the processing format for the live host.
type AudioSettings struct {
	SampleRate float64 `mapstructure:"sample_rate"`
	BlockSize  int     `mapstructure:"block_size"`
	Channels   int     `mapstructure:"channels"`
}

// RenderSettings configures offline rendering.
type RenderSettings struct {
	Input      string `mapstructure:"input"`
	Output     string `mapstructure:"output"`
	BitDepth   int    `mapstructure:"bit_depth"`
	Tail       bool   `mapstructure:"tail"`
	Automation string `mapstructure:"automation"`
	BlockSizes string `mapstructure:"block_sizes"`
}

// LiveSettings configures the audio device.
type LiveSettings struct {
	Backend string `mapstructure:"backend"`
}

// LogSettings configures logrus.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Errors returned by Validate.
var (
	ErrMissingIR     = errors.New("config: impulse response path is required")
	ErrInvalidMix    = errors.New("config: mix must be within [0, 1]")
	ErrInvalidFormat = errors.New("config: invalid setting")
)

// SetDefaults installs default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ir", "")
	v.SetDefault("mix", 1.0)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("engine.partition_size", 1024)
	v.SetDefault("engine.trim", true)
	v.SetDefault("engine.normalize", true)
	v.SetDefault("audio.sample_rate", 48000.0)
	v.SetDefault("audio.block_size", 512)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("render.input", "")
	v.SetDefault("render.output", "")
	v.SetDefault("render.bit_depth", 24)
	v.SetDefault("render.tail", false)
	v.SetDefault("render.automation", "")
	v.SetDefault("render.block_sizes", "512")
	v.SetDefault("live.backend", "auto")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds each flag to a settings key. keys maps flag name to key;
// flags not in keys are bound under their own name.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key, ok := keys[f.Name]
		if !ok {
			key = f.Name
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("config: binding flag %q: %w", f.Name, bindErr)
		}
	})
	return err
}

// Load reads configFile (if not empty) into v and unmarshals the result.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("config: unmarshaling settings: %w", err)
	}

	return s, nil
}

// Validate checks fields shared by every command.
func (s *Settings) Validate() error {
	if s.IR == "" {
		return ErrMissingIR
	}
	if s.Mix < 0 || s.Mix > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidMix, s.Mix)
	}
	if n := s.Engine.PartitionSize; n < 2 || n&(n-1) != 0 {
		return fmt.Errorf("%w: engine.partition_size %d is not a power of two", ErrInvalidFormat, n)
	}
	if s.Log.Format != "text" && s.Log.Format != "json" {
		return fmt.Errorf("%w: log.format %q", ErrInvalidFormat, s.Log.Format)
	}
	return nil
}

// ConfigureLogging applies the log settings to the standard logrus logger.
func (s *Settings) ConfigureLogging() error {
	level, err := logrus.ParseLevel(s.Log.Level)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logrus.SetLevel(level)

	switch s.Log.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}
