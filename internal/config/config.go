package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/scriptbridge/internal/config/loader"
)

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "SCRIPTBRIDGE_"

// FileName is the configuration file name looked up in the home directory.
const FileName = "scriptbridge.toml"

// Config is the bridge configuration.
type Config struct {
	// Home is the host home directory. Script config files and
	// directories created by scripts live below it.
	Home string `toml:"home" validate:"required"`

	Plugin  PluginConfig  `toml:"plugin"`
	Scripts ScriptsConfig `toml:"scripts"`
	Logging LoggingConfig `toml:"logging"`
	I18n    I18nConfig    `toml:"i18n"`
}

// PluginConfig identifies the plugin to scripts.
type PluginConfig struct {
	Name     string `toml:"name" validate:"required,alphanum,max=32"`
	Language string `toml:"language"`
}

// ScriptsConfig controls script loading.
type ScriptsConfig struct {
	// Paths are searched, in order, for bare script names.
	// Empty selects <home>/lua and <home>/lua/autoload.
	Paths []string `toml:"paths"`

	// AutoloadDir is loaded at startup when Autoload is set.
	// Empty selects <home>/lua/autoload.
	AutoloadDir string `toml:"autoload_dir"`
	Autoload    bool   `toml:"autoload"`

	// Watch loads, reloads and unloads scripts as files change in the
	// autoload directory.
	Watch bool `toml:"watch"`

	// Debug 2 and above prints informational lines for quiet loads.
	Debug int  `toml:"debug" validate:"min=0,max=3" jsonschema:"minimum=0,maximum=3"`
	Quiet bool `toml:"quiet"`

	// MaxScripts bounds the live scripts; 0 is unlimited.
	MaxScripts int `toml:"max_scripts" validate:"min=0" jsonschema:"minimum=0"`

	// ExecutionTimeout bounds the top-level run of a script; 0 disables it.
	ExecutionTimeout Duration `toml:"execution_timeout" validate:"min=0"`

	CallStackSize   int `toml:"call_stack_size" validate:"min=1" jsonschema:"minimum=1"`
	RegistryMaxSize int `toml:"registry_max_size" validate:"min=0"`

	// SignalBuffer > 0 delivers signals asynchronously.
	SignalBuffer int `toml:"signal_buffer" validate:"min=0"`
}

// LoggingConfig controls the message sink.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `toml:"format" validate:"oneof=console json" jsonschema:"enum=console,enum=json"`
}

// I18nConfig lists translation catalogs.
type I18nConfig struct {
	Catalogs []string `toml:"catalogs"`
}

// Duration is a time.Duration written as text ("5s") in configuration.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Home: defaultHome(),
		Plugin: PluginConfig{
			Name: "lua",
		},
		Scripts: ScriptsConfig{
			Paths:           []string{},
			Debug:           0,
			CallStackSize:   256,
			RegistryMaxSize: 1024 * 80,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		I18n: I18nConfig{
			Catalogs: []string{},
		},
	}
}

func defaultHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".scriptbridge")
	}
	return ".scriptbridge"
}

// loadOptions configures Load.
type loadOptions struct {
	fs        loader.ReadFileFS
	file      string
	envPrefix string
	noEnv     bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFile sets the configuration file. A missing file is not an error.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
	}
}

// WithFS sets the file system the configuration file is read from.
func WithFS(fs loader.ReadFileFS) LoadOption {
	return func(o *loadOptions) {
		o.fs = fs
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// WithoutEnv disables the environment layer.
func WithoutEnv() LoadOption {
	return func(o *loadOptions) {
		o.noEnv = true
	}
}

// Load merges defaults, the configuration file and the environment, and
// validates the result.
func Load(opts ...LoadOption) (*Config, error) {
	o := loadOptions{fs: loader.DefaultFS(), envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	defaults, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	merged := loader.DeepMerge(nil, defaults)

	file := o.file
	if file == "" {
		file = filepath.Join(expandHome(Default().Home), FileName)
	}
	fileValues, err := loader.NewTOMLLoaderWithFS(o.fs, expandHome(file)).Load()
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, fileValues)

	if !o.noEnv {
		envValues, err := loader.NewEnvLoader(o.envPrefix, defaults).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, envValues)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its rules.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newValidationError(verrs)
	}
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SearchPaths returns the script search paths.
func (c *Config) SearchPaths() []string {
	if len(c.Scripts.Paths) > 0 {
		return c.Scripts.Paths
	}
	return []string{
		filepath.Join(c.Home, "lua"),
		c.AutoloadDir(),
	}
}

// AutoloadDir returns the autoload directory.
func (c *Config) AutoloadDir() string {
	if c.Scripts.AutoloadDir != "" {
		return c.Scripts.AutoloadDir
	}
	return filepath.Join(c.Home, "lua", "autoload")
}

// LogLevel returns the zap level of the logging configuration.
func (c *Config) LogLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// expand resolves "~" in every path setting.
func (c *Config) expand() {
	c.Home = expandHome(c.Home)
	c.Scripts.AutoloadDir = expandHome(c.Scripts.AutoloadDir)
	for i, p := range c.Scripts.Paths {
		c.Scripts.Paths[i] = expandHome(p)
	}
	for i, p := range c.I18n.Catalogs {
		c.I18n.Catalogs[i] = expandHome(p)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// toMap converts c to the generic map form used by the loaders.
func toMap(c *Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// fromMap decodes the merged layers into a Config.
func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg, nil
}
