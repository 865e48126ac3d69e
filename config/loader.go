package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SCRIBE_SERVER_PORT=9090
// maps onto server.port.
const EnvPrefix = "SCRIBE_"

// FileSystem abstracts file lookups so the loader can be tested without
// touching the real working directory.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Options controls where Load looks for configuration files.
type Options struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// Option is a functional option for Load.
type Option func(*Options)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(o *Options) { o.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) Option {
	return func(o *Options) { o.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) Option {
	return func(o *Options) { o.EnvFile = path }
}

var configSearchPaths = []string{
	"./cmd/scribed/config.yml",
	"../cmd/scribed/config.yml",
	"../../cmd/scribed/config.yml",
	"./config/config.yml",
	"./config.yml",
}

var envSearchPaths = []string{
	"./cmd/scribed/.env",
	"../cmd/scribed/.env",
	"./.env",
	"../.env",
}

// Load reads configuration from config.yml, a .env file, and SCRIBE_*
// environment variables, in increasing order of precedence, then applies
// defaults and validates the result.
func Load(opts ...Option) (*Config, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.FileSystem == nil {
		o.FileSystem = osFileSystem{}
	}
	if o.ConfigFile == "" {
		o.ConfigFile = firstExisting(o.FileSystem, configSearchPaths)
	}
	if o.EnvFile == "" {
		o.EnvFile = firstExisting(o.FileSystem, envSearchPaths)
	}

	v := viper.New()

	if o.ConfigFile != "" && o.FileSystem.Exists(o.ConfigFile) {
		v.SetConfigFile(o.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", o.ConfigFile, err)
		}
	}

	if o.EnvFile != "" && o.FileSystem.Exists(o.EnvFile) {
		if err := o.FileSystem.LoadEnv(o.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", o.EnvFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvOverrides(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, path := range paths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnvOverrides maps SCRIBE_* environment variables onto viper keys.
// Underscores are ambiguous between section separators and multi-word
// field names, so every split point is tried.
func bindEnvOverrides(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], EnvPrefix) {
			continue
		}
		for _, key := range envKeyVariants(strings.TrimPrefix(pair[0], EnvPrefix)) {
			v.Set(key, pair[1])
		}
	}
}

// envKeyVariants expands SERVER_MAX_BODY_SIZE into server.max_body_size,
// server.max.body.size and the other possible nestings.
func envKeyVariants(key string) []string {
	lower := strings.ToLower(key)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.ReplaceAll(lower, "_", ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}
