// Package config loads extman's application settings.
//
// Layers, lowest priority first:
//
//   - embedded defaults (embedded/defaults.toml)
//   - the user file, $XDG_CONFIG_HOME/extman/extman.toml or an explicit path
//     (.toml, .yml and .yaml are accepted)
//   - EXTMAN_* environment variables, EXTMAN_STATE_HISTORY_LIMIT -> state.history_limit
//   - explicit overrides, usually command line flags
//
// Empty path settings are filled with the XDG defaults from pkg/paths.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EXTMAN_"

// Config is the decoded application configuration.
type Config struct {
	Catalog    CatalogConfig    `koanf:"catalog" toml:"catalog"`
	State      StateConfig      `koanf:"state" toml:"state"`
	Activation ActivationConfig `koanf:"activation" toml:"activation"`
	Merge      MergeConfig      `koanf:"merge" toml:"merge"`
	Output     OutputConfig     `koanf:"output" toml:"output"`
	Metrics    MetricsConfig    `koanf:"metrics" toml:"metrics"`
}

// CatalogConfig locates the extension catalog.
type CatalogConfig struct {
	Dir             string   `koanf:"dir" toml:"dir"`
	DefinitionFiles []string `koanf:"definition_files" toml:"definition_files"`
}

// StateConfig locates persisted state and history.
type StateConfig struct {
	File         string `koanf:"file" toml:"file"`
	HistoryDB    string `koanf:"history_db" toml:"history_db"`
	HistoryLimit int    `koanf:"history_limit" toml:"history_limit"`
}

// ActivationConfig holds activation defaults.
type ActivationConfig struct {
	Repair bool `koanf:"repair" toml:"repair"`
}

// MergeConfig holds merge settings.
type MergeConfig struct {
	UserLayerName string `koanf:"user_layer" toml:"user_layer"`
}

// OutputConfig controls terminal rendering.
type OutputConfig struct {
	Color    bool `koanf:"color" toml:"color"`
	Markdown bool `koanf:"markdown" toml:"markdown"`
}

// MetricsConfig controls the prometheus textfile.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" toml:"textfile"`
}

// Options tunes Load.
type Options struct {
	// File is an explicit user config path. It must exist when set.
	File string
	// Overrides are applied last, keyed by dotted setting name.
	Overrides map[string]interface{}
	// Paths supplies XDG defaults; nil resolves them from the environment.
	Paths *paths.Paths
}

// Load builds the configuration from all layers.
func Load(opts Options) (*Config, error) {
	logger := logging.GetLogger("config")
	done := logging.LogOperationStart(logger, "config.load")
	defer done()

	p := opts.Paths
	if p == nil {
		p = paths.New()
	}

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. User file
	path, explicit := opts.File, opts.File != ""
	if !explicit {
		path = p.ConfigFile()
	}
	path = paths.ExpandHome(path)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
				WithDetail("path", path)
		}
		logger.Debug().Str("path", path).Msg("User configuration loaded")
	} else if explicit {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not found", path).
			WithDetail("path", path)
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	// 4. Explicit overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode configuration")
	}

	cfg.fillPaths(p)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("catalog", cfg.Catalog.Dir).
		Str("state", cfg.State.File).
		Msg("Configuration resolved")
	return &cfg, nil
}

// envKey maps EXTMAN_STATE_HISTORY_DB to state.history_db. Only the first
// underscore separates section from key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

func (c *Config) fillPaths(p *paths.Paths) {
	c.Catalog.Dir = orDefault(c.Catalog.Dir, p.CatalogDir())
	c.State.File = orDefault(c.State.File, p.StateFile())
	c.State.HistoryDB = orDefault(c.State.HistoryDB, p.HistoryDB())
	if c.Metrics.Textfile != "" {
		c.Metrics.Textfile = paths.ExpandHome(c.Metrics.Textfile)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return paths.ExpandHome(v)
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.State.HistoryLimit < 0 {
		return errors.Newf(errors.ErrConfigValid, "state.history_limit must not be negative, got %d", c.State.HistoryLimit).
			WithDetail("key", "state.history_limit")
	}
	if strings.TrimSpace(c.Merge.UserLayerName) == "" {
		return errors.New(errors.ErrConfigValid, "merge.user_layer must not be empty").
			WithDetail("key", "merge.user_layer")
	}
	if len(c.Catalog.DefinitionFiles) == 0 {
		return errors.New(errors.ErrConfigValid, "catalog.definition_files must list at least one name").
			WithDetail("key", "catalog.definition_files")
	}
	return nil
}
