package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProcessConfig holds configuration for the process command. RPCURL is
// optional and only used for fee growth reads and missing token metadata.
type ProcessConfig struct {
	RPCURL               string
	In                   string
	PGDSN                string
	Cursor               string
	RegisterUnknownPools bool
	MetricsAddr          string
	LogLevel             string
	Network              NetworkParams
}

// LoadProcess merges config file, environment variables, and flags into ProcessConfig.
func LoadProcess(cfgFile string, flags *pflag.FlagSet) (ProcessConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/typed_events.jsonl")
		v.SetDefault("cursor", "process")
	})
	if err != nil {
		return ProcessConfig{}, err
	}

	network, err := loadNetwork(v)
	if err != nil {
		return ProcessConfig{}, err
	}

	return ProcessConfig{
		RPCURL:               v.GetString("rpc"),
		In:                   v.GetString("in"),
		PGDSN:                v.GetString("pg-dsn"),
		Cursor:               v.GetString("cursor"),
		RegisterUnknownPools: v.GetBool("register-unknown-pools"),
		MetricsAddr:          v.GetString("metrics-addr"),
		LogLevel:             v.GetString("log-level"),
		Network:              network,
	}, nil
}
