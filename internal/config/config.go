package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds settings for the sync command, loaded from flags, env, or config file.
type Config struct {
	RPCURL               string
	FromBlock            uint64
	ToBlock              uint64
	Addresses            []string
	Topic0               []string
	BatchSize            uint64
	Archive              string
	PGDSN                string
	Cursor               string
	RegisterUnknownPools bool
	MaxRetries           int
	RetryBackoff         time.Duration
	MetricsAddr          string
	LogLevel             string
	Network              NetworkParams
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", uint64(2000))
		v.SetDefault("cursor", "sync")
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return Config{}, err
	}

	network, err := loadNetwork(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:               v.GetString("rpc"),
		FromBlock:            v.GetUint64("from"),
		ToBlock:              v.GetUint64("to"),
		Addresses:            getStringSlice(v, "address"),
		Topic0:               getStringSlice(v, "topic0"),
		BatchSize:            v.GetUint64("batch-size"),
		Archive:              v.GetString("archive"),
		PGDSN:                v.GetString("pg-dsn"),
		Cursor:               v.GetString("cursor"),
		RegisterUnknownPools: v.GetBool("register-unknown-pools"),
		MaxRetries:           v.GetInt("max-retries"),
		RetryBackoff:         v.GetDuration("retry-backoff"),
		MetricsAddr:          v.GetString("metrics-addr"),
		LogLevel:             v.GetString("log-level"),
		Network:              network,
	}

	return cfg, nil
}

// newViper builds a viper instance with the shared env, flag and config file
// wiring. Keys use dashes; nested keys use dots, so network.minimum-eth-locked
// maps to INDEXER_NETWORK_MINIMUM_ETH_LOCKED.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	setNetworkDefaults(v)
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
