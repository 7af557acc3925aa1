package cli

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	perrors "github.com/matzehuels/parttree/pkg/errors"
)

// Config is the CLI configuration. Values come from defaults, then the
// config file, then flags bound with viper.BindPFlag.
type Config struct {
	Verbose bool        `mapstructure:"verbose"`
	Dot     DotConfig   `mapstructure:"dot"`
	Serve   ServeConfig `mapstructure:"serve"`
	Watch   WatchConfig `mapstructure:"watch"`
}

// DotConfig configures the dot command.
type DotConfig struct {
	// Format is "dot" or "svg".
	Format string `mapstructure:"format"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig configures run --watch.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

func defaultConfig() Config {
	return Config{
		Dot:   DotConfig{Format: formatDOT},
		Serve: ServeConfig{Addr: "127.0.0.1:8080"},
		Watch: WatchConfig{Debounce: 200 * time.Millisecond},
	}
}

func newConfig() *viper.Viper {
	v := viper.New()
	d := defaultConfig()
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("dot.format", d.Dot.Format)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	return v
}

// loadConfig reads the config file into c.cfg. A missing default config
// file is not an error; a missing --config file is.
func (c *CLI) loadConfig() error {
	v := c.config
	if c.cfgFile != "" {
		v.SetConfigFile(c.cfgFile)
	} else if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "decode config")
	}
	if cfg.Dot.Format != formatDOT && cfg.Dot.Format != formatSVG {
		return perrors.New(perrors.ErrCodeInvalidInput, "dot format %q: want %s or %s", cfg.Dot.Format, formatDOT, formatSVG)
	}
	c.cfg = cfg
	c.Logger.Debug("config loaded", "file", v.ConfigFileUsed())
	return nil
}
