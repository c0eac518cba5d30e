// Package config abstracts all program configuration.
package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"thmlconverter/static"
)

// Logger configuration for single logger.
type Logger struct {
	Level       string `json:"level" toml:"level"`
	Destination string `json:"destination" toml:"destination"`
	Mode        string `json:"mode" toml:"mode"`
}

// Images controls the asset retrieval collaborator - how referenced images
// are fetched and cached during conversion.
type Images struct {
	Download     bool   `json:"download" toml:"download"`
	BaseURL      string `json:"base_url" toml:"base_url"`
	CacheDir     string `json:"cache_dir" toml:"cache_dir"`
	TimeoutSec   int    `json:"timeout_sec" toml:"timeout_sec"`
	MaxDimension int    `json:"max_dimension" toml:"max_dimension"`
}

// Doc format configuration for book processor.
type Doc struct {
	FileNameFormat        string `json:"filename_format" toml:"filename_format"`
	FileNameTransliterate bool   `json:"filename_transliterate" toml:"filename_transliterate"`
	FixZip                bool   `json:"fix_zip" toml:"fix_zip"`
	Stylesheet            string `json:"stylesheet" toml:"stylesheet"`
	ScripRefURL           string `json:"scripref_url" toml:"scripref_url"`
	StrictNotes           bool   `json:"strict_notes" toml:"strict_notes"`
	Images                Images `json:"images" toml:"images"`
}

// Config keeps all configuration values.
type Config struct {
	// Path is directory of the first configuration file provided, empty when
	// running on built-in defaults. Relative resource paths resolve against it.
	Path string `json:"-" toml:"-"`

	Doc    Doc    `json:"document" toml:"document"`
	Logger Logger `json:"logger" toml:"logger"`
}

// BuildConfig loads configuration from requested sources merging them over
// built-in defaults. Format is detected by extension: .toml, .yaml/.yml or
// .json; "-" reads JSON from STDIN.
func BuildConfig(fnames ...string) (*Config, error) {

	conf := new(Config)

	data, err := static.Asset("configuration.toml")
	if err != nil {
		return nil, errors.Wrap(err, "unable to get built-in configuration")
	}
	if err := toml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrap(err, "unable to parse built-in configuration")
	}

	for _, fname := range fnames {

		over := new(Config)

		if fname == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, errors.Wrap(err, "unable to read configuration from STDIN")
			}
			if err := json.Unmarshal(data, over); err != nil {
				return nil, errors.Wrap(err, "unable to parse configuration from STDIN")
			}
		} else {
			data, err := os.ReadFile(fname)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to read configuration file %s", fname)
			}
			switch strings.ToLower(filepath.Ext(fname)) {
			case ".toml":
				err = toml.Unmarshal(data, over)
			case ".yaml", ".yml":
				err = yaml.Unmarshal(data, over)
			case ".json":
				err = json.Unmarshal(data, over)
			default:
				return nil, errors.Errorf("unsupported configuration format: %s", fname)
			}
			if err != nil {
				return nil, errors.Wrapf(err, "unable to parse configuration file %s", fname)
			}
			if len(conf.Path) == 0 {
				if abs, err := filepath.Abs(fname); err == nil {
					conf.Path = filepath.Dir(abs)
				}
			}
		}

		if err := mergo.Merge(conf, over, mergo.WithOverride); err != nil {
			return nil, errors.Wrapf(err, "unable to merge configuration from %s", fname)
		}
	}
	return conf, nil
}

// GetBytes returns configuration as a JSON document.
func (conf *Config) GetBytes() ([]byte, error) {
	return json.MarshalIndent(conf, "", "  ")
}

// PrepareLog creates logger according to configuration.
func (conf *Config) PrepareLog() (*zap.Logger, error) {

	level, err := zapcore.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown log level %q", conf.Logger.Level)
	}

	var c zap.Config
	switch strings.ToLower(conf.Logger.Mode) {
	case "", "production":
		c = zap.NewProductionConfig()
		c.Encoding = "console"
		c.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	case "development":
		c = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("unknown log mode %q", conf.Logger.Mode)
	}
	c.Level = zap.NewAtomicLevelAt(level)

	switch conf.Logger.Destination {
	case "", "stderr", "stdout":
		if len(conf.Logger.Destination) > 0 {
			c.OutputPaths = []string{conf.Logger.Destination}
		}
	default:
		fname := conf.Logger.Destination
		if !filepath.IsAbs(fname) && len(conf.Path) > 0 {
			fname = filepath.Join(conf.Path, fname)
		}
		c.OutputPaths = []string{fname}
	}
	c.ErrorOutputPaths = c.OutputPaths

	log, err := c.Build()
	if err != nil {
		return nil, errors.Wrap(err, "unable to build logger")
	}
	return log, nil
}

// CleanFileName removes characters some filesystems do not like from the name.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, sym) || sym < 0x20 {
			return -1
		}
		return sym
	}, in)
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
