package config

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Polygon deployment defaults.
const (
	defaultReferenceToken = "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619"
	defaultFactoryAddress = "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	defaultUSDCWETHPool   = "0x0e44ceb592acfc5d3f09d996302eb4c499ff8c10"
	defaultUSDC           = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"
	defaultWMATIC         = "0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270"
	defaultDAI            = "0x8f3cf7ad23cd3cadbd9735aff958023239c6a063"
	defaultBadPricingPool = "0x9663f2ca0454accad3e094448ea6f77443880454"
)

// NetworkParams is the raw network configuration.
type NetworkParams struct {
	ReferenceToken         string
	FactoryAddress         string
	StableOraclePools      []string
	StableCoins            []string
	UntrackedTokens        []string
	UntrackedPairs         []string
	WhitelistTokens        []string
	DenylistedPools        []string
	MinimumETHLocked       decimal.Decimal
	MinimumLiquidityUSD    decimal.Decimal
	MinimumStableLiquidity decimal.Decimal
}

// Network exposes network constants with set membership over entity ids.
// Ids are compared lower-cased, the form entities are keyed by.
type Network struct {
	ReferenceToken    string
	FactoryAddress    string
	StableOraclePools []string

	// MinimumETHLocked gates price discovery, in reference currency units.
	MinimumETHLocked decimal.Decimal
	// MinimumLiquidityUSD gates tracked volume for pools with few deposits.
	MinimumLiquidityUSD decimal.Decimal
	// MinimumStableLiquidity gates the reference currency USD oracle, in stable units.
	MinimumStableLiquidity decimal.Decimal

	stableCoins     mapset.Set[string]
	untrackedTokens mapset.Set[string]
	untrackedPairs  mapset.Set[string]
	whitelist       mapset.Set[string]
	denylist        mapset.Set[string]
}

func NewNetwork(p NetworkParams) *Network {
	return &Network{
		ReferenceToken:         NormalizeID(p.ReferenceToken),
		FactoryAddress:         NormalizeID(p.FactoryAddress),
		StableOraclePools:      normalizeIDs(p.StableOraclePools),
		MinimumETHLocked:       p.MinimumETHLocked,
		MinimumLiquidityUSD:    p.MinimumLiquidityUSD,
		MinimumStableLiquidity: p.MinimumStableLiquidity,
		stableCoins:            idSet(p.StableCoins),
		untrackedTokens:        idSet(p.UntrackedTokens),
		untrackedPairs:         idSet(p.UntrackedPairs),
		whitelist:              idSet(p.WhitelistTokens),
		denylist:               idSet(p.DenylistedPools),
	}
}

// DefaultNetworkParams returns the Polygon configuration.
func DefaultNetworkParams() NetworkParams {
	return NetworkParams{
		ReferenceToken:         defaultReferenceToken,
		FactoryAddress:         defaultFactoryAddress,
		StableOraclePools:      []string{defaultUSDCWETHPool},
		StableCoins:            []string{defaultUSDC},
		WhitelistTokens:        []string{defaultReferenceToken, defaultWMATIC, defaultUSDC, defaultDAI},
		DenylistedPools:        []string{defaultBadPricingPool},
		MinimumETHLocked:       decimal.NewFromInt(5),
		MinimumLiquidityUSD:    decimal.NewFromInt(400_000),
		MinimumStableLiquidity: decimal.NewFromInt(10_000),
	}
}

func (n *Network) IsReference(token string) bool { return NormalizeID(token) == n.ReferenceToken }
func (n *Network) IsStableCoin(token string) bool { return n.stableCoins.Contains(NormalizeID(token)) }
func (n *Network) IsUntrackedToken(token string) bool {
	return n.untrackedTokens.Contains(NormalizeID(token))
}
func (n *Network) IsUntrackedPair(pool string) bool { return n.untrackedPairs.Contains(NormalizeID(pool)) }
func (n *Network) IsWhitelisted(token string) bool  { return n.whitelist.Contains(NormalizeID(token)) }
func (n *Network) IsDenylisted(pool string) bool    { return n.denylist.Contains(NormalizeID(pool)) }

// NormalizeID lower-cases and trims an address-like id.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}

func idSet(ids []string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(normalizeIDs(ids)...)
}

func setNetworkDefaults(v *viper.Viper) {
	d := DefaultNetworkParams()
	v.SetDefault("network.reference-token", d.ReferenceToken)
	v.SetDefault("network.factory-address", d.FactoryAddress)
	v.SetDefault("network.stable-oracle-pools", d.StableOraclePools)
	v.SetDefault("network.stable-coins", d.StableCoins)
	v.SetDefault("network.whitelist-tokens", d.WhitelistTokens)
	v.SetDefault("network.denylisted-pools", d.DenylistedPools)
	v.SetDefault("network.minimum-eth-locked", d.MinimumETHLocked.String())
	v.SetDefault("network.minimum-liquidity-usd", d.MinimumLiquidityUSD.String())
	v.SetDefault("network.minimum-stable-liquidity", d.MinimumStableLiquidity.String())
}

// loadNetwork reads the network section from an initialised viper instance.
func loadNetwork(v *viper.Viper) (NetworkParams, error) {
	p := NetworkParams{
		ReferenceToken:    v.GetString("network.reference-token"),
		FactoryAddress:    v.GetString("network.factory-address"),
		StableOraclePools: getStringSlice(v, "network.stable-oracle-pools"),
		StableCoins:       getStringSlice(v, "network.stable-coins"),
		UntrackedTokens:   getStringSlice(v, "network.untracked-tokens"),
		UntrackedPairs:    getStringSlice(v, "network.untracked-pairs"),
		WhitelistTokens:   getStringSlice(v, "network.whitelist-tokens"),
		DenylistedPools:   getStringSlice(v, "network.denylisted-pools"),
	}
	if p.ReferenceToken == "" {
		return NetworkParams{}, fmt.Errorf("network.reference-token is required")
	}

	var err error
	if p.MinimumETHLocked, err = getDecimal(v, "network.minimum-eth-locked"); err != nil {
		return NetworkParams{}, err
	}
	if p.MinimumLiquidityUSD, err = getDecimal(v, "network.minimum-liquidity-usd"); err != nil {
		return NetworkParams{}, err
	}
	if p.MinimumStableLiquidity, err = getDecimal(v, "network.minimum-stable-liquidity"); err != nil {
		return NetworkParams{}, err
	}
	return p, nil
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
