// Package config loads ticsmerge settings. Precedence, lowest first:
// defaults, YAML file, .env file and TICSMERGE_* environment, command line
// flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Zerofisher/ticsmerge/pkg/blob"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "ticsmerge.yaml"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "TICSMERGE_"

// Config holds all settings.
type Config struct {
	DataDir string           `yaml:"data_dir" validate:"required_if=Backend file"`
	Backend string           `yaml:"backend" validate:"oneof=file redis memory"`
	BlobKey string           `yaml:"blob_key" validate:"required,excludesall=/\\"`
	Redis   blob.RedisConfig `yaml:"redis"`
	Log     LogConfig        `yaml:"log"`
	View    ViewConfig       `yaml:"view"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json dev prod"`
}

// ViewConfig configures the list view.
type ViewConfig struct {
	PerPage int `yaml:"per_page" validate:"gte=1,lte=1000"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Backend: blob.BackendFile,
		BlobKey: blob.DefaultKey,
		Redis: blob.RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "console"},
		View: ViewConfig{PerPage: 10},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ticsmerge")
	}
	return ".ticsmerge"
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment. An empty path reads DefaultFile if present; an explicit
// path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", file, err)
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TICSMERGE_* variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("DATA_DIR", &c.DataDir)
	str("BACKEND", &c.Backend)
	str("BLOB_KEY", &c.BlobKey)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if err := num("REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	if err := num("PER_PAGE", &c.View.PerPage); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "REDIS_DIAL_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DIAL_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Redis.DialTimeout = d
	}
	return nil
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Backend == blob.BackendRedis && c.Redis.Addr == "" {
		return errors.New("invalid config: redis backend needs redis.addr")
	}
	return nil
}

// Blob returns the blob store configuration.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Backend: c.Backend,
		Key:     c.BlobKey,
		Dir:     c.DataDir,
		Redis:   c.Redis,
	}
}
