package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/benz9527/rbrange/lib/infra"
	"github.com/benz9527/rbrange/xlog"
)

var ErrInvalidConfig = errors.New("invalid config")

type Log struct {
	Level   string `yaml:"level"`
	Encoder string `yaml:"encoder"`
}

type Driver struct {
	// MaxAttempts is the number of malformed tokens tolerated per number.
	MaxAttempts int `yaml:"maxAttempts"`
}

type Metrics struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type Tree struct {
	Desc           bool `yaml:"desc"`
	EraseRebalance bool `yaml:"eraseRebalance"`
}

type Config struct {
	Log     Log     `yaml:"log"`
	Driver  Driver  `yaml:"driver"`
	Metrics Metrics `yaml:"metrics"`
	Tree    Tree    `yaml:"tree"`
}

func Default() *Config {
	return &Config{
		Log: Log{
			Level:   xlog.LogLevelInfo.String(),
			Encoder: "plaintext",
		},
		Driver: Driver{
			MaxAttempts: 3,
		},
		Metrics: Metrics{
			Enabled:  false,
			Interval: 10 * time.Second,
		},
	}
}

// Load reads the YAML file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(path)) == 0 {
		return cfg, nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "unable to read config file: "+path)
	}
	if err = yaml.Unmarshal(bytes, cfg); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "unable to parse config file: "+path)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Driver.MaxAttempts <= 0 {
		return infra.WrapErrorStackWithMessage(ErrInvalidConfig, "driver.maxAttempts must be positive")
	}
	if cfg.Metrics.Interval <= 0 {
		return infra.WrapErrorStackWithMessage(ErrInvalidConfig, "metrics.interval must be positive")
	}
	if _, ok := xlog.ParseLogLevel(cfg.Log.Level); !ok {
		return infra.WrapErrorStackWithMessage(ErrInvalidConfig, "unknown log level: "+cfg.Log.Level)
	}
	if _, ok := xlog.ParseLogEncoder(cfg.Log.Encoder); !ok {
		return infra.WrapErrorStackWithMessage(ErrInvalidConfig, "unknown log encoder: "+cfg.Log.Encoder)
	}
	return nil
}

// Logger builds the stderr logger described by the log section.
func (cfg *Config) Logger() xlog.XLogger {
	lvl, _ := xlog.ParseLogLevel(cfg.Log.Level)
	enc, _ := xlog.ParseLogEncoder(cfg.Log.Encoder)
	return xlog.NewXLogger(
		xlog.WithXLoggerLevel(lvl),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerWriter(xlog.StdErr),
	)
}

// Flags holds the command line overrides shared by the commands.
type Flags struct {
	ConfigPath string
	LogLevel   string
	Metrics    bool

	fs *pflag.FlagSet
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to the YAML config file")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&f.Metrics, "metrics", false, "export tree metrics to stderr")
	return f
}

// Resolve loads the config file then applies the flags which were set
// explicitly.
func (f *Flags) Resolve() (*Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if f.fs.Changed("metrics") {
		cfg.Metrics.Enabled = f.Metrics
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
