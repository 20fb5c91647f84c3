// Package config loads docsheet settings from defaults, an optional YAML
// file, DOCSHEET_* environment variables and command-line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "DOCSHEET"
	DefaultConfigName = "docsheet"
)

// Output formats accepted by the output key.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var (
	validVariants = []string{"", "excel", "xlsx", "csv"}
	validOutputs  = []string{OutputText, OutputJSON, OutputYAML}
)

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"variant":      "variant",
	"log-dir":      "log_dir",
	"verbose":      "verbose",
	"output":       "output",
	"journal":      "journal.enabled",
	"journal-path": "journal.path",
}

type Journal struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config holds the settings of one docsheet invocation.
type Config struct {
	// Variant is "excel", "csv" or empty to infer it from the target extension.
	Variant string  `mapstructure:"variant"`
	LogDir  string  `mapstructure:"log_dir"`
	Verbose bool    `mapstructure:"verbose"`
	Output  string  `mapstructure:"output"`
	Journal Journal `mapstructure:"journal"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// LogLevel is the level conversion logs are written at.
func (c Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// DefaultJournalPath is the run journal location used when none is configured.
func DefaultJournalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "docsheet-journal.db")
	}
	return filepath.Join(dir, DefaultConfigName, "journal.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("variant", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("verbose", false)
	v.SetDefault("output", OutputText)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", DefaultJournalPath())
}

// Load merges every configuration source. cfgFile, when set, must exist;
// otherwise docsheet.yaml is looked up in the working directory and the
// user config directory and may be absent. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.Variant = strings.ToLower(strings.TrimSpace(cfg.Variant))
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !slices.Contains(validVariants, c.Variant) {
		return fmt.Errorf("invalid variant %q (want excel or csv)", c.Variant)
	}
	if !slices.Contains(validOutputs, c.Output) {
		return fmt.Errorf("invalid output format %q (want %s)", c.Output, strings.Join(validOutputs, ", "))
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal is enabled but journal.path is empty")
	}
	return nil
}
