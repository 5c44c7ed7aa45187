// Package config loads runtime configuration via github.com/spf13/viper,
// matching spec.md §6's tick_size parameter and the ambient listen-address/
// worker-pool-size settings SPEC_FULL.md §10.3 adds around it.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration for one server process.
type Config struct {
	TickSize        decimal.Decimal
	ListenAddress    string
	ListenPort       int
	WorkerPoolSize   int
	ConnReadTimeout  time.Duration
	MetricsAddress   string
}

const (
	keyTickSize       = "tick_size"
	keyListenAddress  = "listen_address"
	keyListenPort     = "listen_port"
	keyWorkerPoolSize = "worker_pool_size"
	keyConnTimeout    = "conn_read_timeout"
	keyMetricsAddress = "metrics_address"
)

// Load reads configuration from environment variables prefixed VENUE_ and an
// optional config file (name and paths supplied by the caller), falling back
// to spec.md §6's documented defaults when unset.
func Load(configName string, configPaths ...string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VENUE")
	v.AutomaticEnv()

	v.SetDefault(keyTickSize, "0.0001")
	v.SetDefault(keyListenAddress, "0.0.0.0")
	v.SetDefault(keyListenPort, 9001)
	v.SetDefault(keyWorkerPoolSize, 10)
	v.SetDefault(keyConnTimeout, "5s")
	v.SetDefault(keyMetricsAddress, ":9100")

	if configName != "" {
		v.SetConfigName(configName)
		for _, p := range configPaths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	tickSize, err := decimal.NewFromString(v.GetString(keyTickSize))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", keyTickSize, err)
	}

	return Config{
		TickSize:       tickSize,
		ListenAddress:  v.GetString(keyListenAddress),
		ListenPort:     v.GetInt(keyListenPort),
		WorkerPoolSize: v.GetInt(keyWorkerPoolSize),
		ConnReadTimeout: v.GetDuration(keyConnTimeout),
		MetricsAddress: v.GetString(keyMetricsAddress),
	}, nil
}
