package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	fs.String("rpc", "", "")
	fs.StringSlice("address", nil, "")
	fs.Uint64("from", 0, "")
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", syncFlags(t, "--rpc=http://localhost:8545", "--address=0xA, 0xB", "--from=42"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, []string{"0xA", "0xB"}, cfg.Addresses)
	assert.Equal(t, uint64(42), cfg.FromBlock)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
	assert.Equal(t, "sync", cfg.Cursor)
	assert.Equal(t, "info", cfg.LogLevel)

	d := DefaultNetworkParams()
	assert.Equal(t, d.ReferenceToken, cfg.Network.ReferenceToken)
	assert.Equal(t, d.StableOraclePools, cfg.Network.StableOraclePools)
	assert.Equal(t, "5", cfg.Network.MinimumETHLocked.String())
	assert.Equal(t, "400000", cfg.Network.MinimumLiquidityUSD.String())
	assert.Equal(t, "10000", cfg.Network.MinimumStableLiquidity.String())
	assert.Empty(t, cfg.Network.UntrackedTokens)
}

func TestLoadNetworkFromEnv(t *testing.T) {
	t.Setenv("INDEXER_NETWORK_MINIMUM_ETH_LOCKED", "7.5")
	t.Setenv("INDEXER_NETWORK_UNTRACKED_TOKENS", "0xAA, 0xBB")
	t.Setenv("INDEXER_PG_DSN", "postgres://ledger@localhost/ledger")

	cfg, err := LoadProcess("", nil)
	require.NoError(t, err)

	assert.Equal(t, "7.5", cfg.Network.MinimumETHLocked.String())
	assert.Equal(t, []string{"0xAA", "0xBB"}, cfg.Network.UntrackedTokens)
	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.PGDSN)
	assert.Equal(t, "process", cfg.Cursor)

	network := NewNetwork(cfg.Network)
	assert.True(t, network.IsUntrackedToken("0xaa"))
}

func TestLoadNetworkFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	content := `
network:
  reference-token: "0xC02AAA39B223FE8D0A0E5C4F27EAD9083C756CC2"
  stable-coins:
    - "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"
  whitelist-tokens:
    - "0xC02AAA39B223FE8D0A0E5C4F27EAD9083C756CC2"
    - "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"
  minimum-liquidity-usd: 60000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadProcess(path, nil)
	require.NoError(t, err)

	network := NewNetwork(cfg.Network)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", network.ReferenceToken)
	assert.True(t, network.IsReference("0xC02AAA39B223FE8D0A0E5C4F27EAD9083C756CC2"))
	assert.True(t, network.IsStableCoin("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"))
	assert.True(t, network.IsWhitelisted("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"))
	assert.False(t, network.IsWhitelisted(defaultWMATIC))
	assert.Equal(t, "60000", network.MinimumLiquidityUSD.String())
	// Unset keys keep their defaults.
	assert.Equal(t, "5", network.MinimumETHLocked.String())
}

func TestLoadRejectsInvalidDecimal(t *testing.T) {
	t.Setenv("INDEXER_NETWORK_MINIMUM_STABLE_LIQUIDITY", "lots")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.minimum-stable-liquidity")
}

func TestLoadDecodeFactoryDefault(t *testing.T) {
	cfg, err := LoadDecode("", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultFactoryAddress, cfg.FactoryAddress)
	assert.Equal(t, "./data/typed_events.jsonl", cfg.Out)
	assert.Empty(t, cfg.Topic0Map)
	assert.False(t, cfg.FactoryPoolsOnly)

	t.Setenv("INDEXER_FACTORY_POOLS_ONLY", "true")
	cfg, err = LoadDecode("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.FactoryPoolsOnly)
}

func TestNetworkMembership(t *testing.T) {
	network := NewNetwork(DefaultNetworkParams())

	assert.True(t, network.IsReference(" 0x7CEB23FD6BC0ADD59E62AC25578270CFF1B9F619 "))
	assert.True(t, network.IsStableCoin(defaultUSDC))
	assert.True(t, network.IsDenylisted(defaultBadPricingPool))
	assert.True(t, network.IsWhitelisted(defaultDAI))
	assert.False(t, network.IsUntrackedPair(defaultUSDCWETHPool))
}
