package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultPort = 9888
	envPrefix   = "BRIDGE_STATS"
)

// config is the final set of settings, coming from (in order of
// precedence) flags, `BRIDGE_STATS_*` environment variables, the yaml file
// pointed at by `--config` and the flag defaults.
//
type config struct {
	Address        string `mapstructure:"address"`
	Port           int    `mapstructure:"port"`
	TelemetryPath  string `mapstructure:"telemetry-path"`
	DumpData       bool   `mapstructure:"dump-data"`
	InstancesDir   string `mapstructure:"instances-dir"`
	DefaultDir     string `mapstructure:"default-dir"`
	Parallelism    int    `mapstructure:"parallelism"`
	CountrySummary bool   `mapstructure:"country-summary"`
	LogLevel       string `mapstructure:"log-level"`
}

func loadConfig(flags *pflag.FlagSet) (config, error) {
	var cfg config

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return cfg, fmt.Errorf("bind flags: %w", err)
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config '%s': %w",
				configFile, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}

	if !strings.HasPrefix(cfg.TelemetryPath, "/") {
		return cfg, fmt.Errorf("telemetry path '%s' must start with '/'",
			cfg.TelemetryPath)
	}

	return cfg, nil
}

// BindAddress is the `host:port` that the exporter listens on.
//
func (c config) BindAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

func newLogger(level string) (logr.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logr.Discard(), fmt.Errorf("parse level '%s': %w", level, err)
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := zapConfig.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("zap build: %w", err)
	}

	return zapr.NewLogger(logger), nil
}
