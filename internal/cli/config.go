package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds settings read from islet.yaml and ISLET_* environment
// variables. Command-line flags take precedence over both.
type Config struct {
	Format  string
	Storage StorageConfig
	Render  RenderConfig
}

// StorageConfig selects the SQLite database backing storage steps.
// An empty Path keeps storage in memory for the lifetime of the command.
type StorageConfig struct {
	Path   string
	Bucket string
}

// RenderConfig holds render settings.
type RenderConfig struct {
	Pretty bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Format:  "text",
		Storage: StorageConfig{Bucket: "default"},
	}
}

// LoadConfig reads configuration from path, or from islet.yaml in the
// working directory when path is empty. A missing default file is not
// an error; a missing explicit file is. Env var overrides use prefix
// ISLET_ (ISLET_STORAGE_PATH, ISLET_RENDER_PRETTY, ...).
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("format", def.Format)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.bucket", def.Storage.Bucket)
	v.SetDefault("render.pretty", def.Render.Pretty)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("islet")
	}

	v.SetEnvPrefix("ISLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
