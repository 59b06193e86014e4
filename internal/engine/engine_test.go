package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"liquidityLedger/internal/config"
	"liquidityLedger/internal/metrics"
	"liquidityLedger/internal/model"
	"liquidityLedger/internal/numeric"
	"liquidityLedger/internal/store"
)

const (
	factoryAddr = "0x1f98431c8ad98523631ae4a59f267346ea31f984"
	weth        = "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619"
	usdc        = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"
	tokX        = "0x00000000000000000000000000000000000000aa"
	usdcPool    = "0x0e44ceb592acfc5d3f09d996302eb4c499ff8c10"
	xPool       = "0x0000000000000000000000000000000000000b01"
	badPool     = "0x9663f2ca0454accad3e094448ea6f77443880454"
)

// sqrt price of 1800 USDC per WETH with USDC as token0 (6 decimals) and WETH as token1 (18).
var sqrtPrice1800 = mustBig("1867425699159537997291064607581939")

func mustBig(v string) *big.Int {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		panic("invalid big int " + v)
	}
	return n
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type stubFeeGrowth struct {
	growth0, growth1 *big.Int
	calls            int
}

func (s *stubFeeGrowth) FeeGrowthGlobals(context.Context, string, uint64) (*big.Int, *big.Int, error) {
	s.calls++
	return s.growth0, s.growth1, nil
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	backend   *store.Memory
	engine    *Engine
	metrics   *metrics.Metrics
	feeGrowth *stubFeeGrowth
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	network := config.NewNetwork(config.NetworkParams{
		ReferenceToken:         weth,
		FactoryAddress:         factoryAddr,
		StableOraclePools:      []string{usdcPool},
		StableCoins:            []string{usdc},
		WhitelistTokens:        []string{weth, usdc},
		DenylistedPools:        []string{badPool},
		MinimumETHLocked:       decimal.NewFromInt(5),
		MinimumLiquidityUSD:    decimal.NewFromInt(1000),
		MinimumStableLiquidity: decimal.NewFromInt(10_000),
	})
	feeGrowth := &stubFeeGrowth{
		growth0: new(big.Int).Lsh(big.NewInt(3), 128),
		growth1: new(big.Int).Lsh(big.NewInt(5), 140),
	}
	m := metrics.New(prometheus.NewRegistry())
	eng, err := New(Config{Network: network, FeeGrowth: feeGrowth, Metrics: m}, nil)
	require.NoError(t, err)
	return &fixture{t: t, ctx: context.Background(), backend: store.NewMemory(), engine: eng, metrics: m, feeGrowth: feeGrowth}
}

func (f *fixture) apply(fn func(u *store.Unit) error) {
	f.t.Helper()
	u := store.NewUnit(f.backend)
	require.NoError(f.t, fn(u))
	require.NoError(f.t, u.Commit(f.ctx))
}

func (f *fixture) pool(id string) *model.Pool {
	f.t.Helper()
	pool, err := store.NewUnit(f.backend).Pool(f.ctx, id)
	require.NoError(f.t, err)
	return pool
}

func (f *fixture) token(id string) *model.Token {
	f.t.Helper()
	token, err := store.NewUnit(f.backend).Token(f.ctx, id)
	require.NoError(f.t, err)
	return token
}

func (f *fixture) factory() *model.Factory {
	f.t.Helper()
	factory, err := store.NewUnit(f.backend).Factory(f.ctx, factoryAddr)
	require.NoError(f.t, err)
	return factory
}

func (f *fixture) registerUSDCPool(id string) {
	f.apply(func(u *store.Unit) error {
		return f.engine.RegisterPool(f.ctx, u, PoolCreated{
			EventMeta:   EventMeta{Pool: id, BlockNumber: 100, Timestamp: 1_700_000_000},
			Token0:      TokenInfo{ID: usdc, Symbol: "USDC", Decimals: 6},
			Token1:      TokenInfo{ID: weth, Symbol: "WETH", Decimals: 18},
			FeeTier:     3000,
			TickSpacing: 60,
		})
	})
	f.apply(func(u *store.Unit) error {
		return f.engine.HandleInitialize(f.ctx, u, Initialize{
			EventMeta:    EventMeta{Pool: id, BlockNumber: 100, LogIndex: 1},
			SqrtPriceX96: sqrtPrice1800,
			Tick:         200_000,
		})
	})
}

// mintUSDCPool deposits 2,000,000 USDC and 1,000 WETH in range.
func (f *fixture) mintUSDCPool(id string) {
	f.apply(func(u *store.Unit) error {
		return f.engine.HandleMint(f.ctx, u, Mint{
			EventMeta: EventMeta{Pool: id, BlockNumber: 101, TxHash: "0xmint", LogIndex: 0},
			Owner:     "0xowner",
			Sender:    "0xsender",
			TickLower: -887_220,
			TickUpper: 887_220,
			Amount:    mustBig("1000000000000000000"),
			Amount0:   mustBig("2000000000000"),
			Amount1:   mustBig("1000000000000000000000"),
		})
	})
}

// seedPrices sets the native price to $1800 and derives token prices from it.
func (f *fixture) seedPrices() {
	f.apply(func(u *store.Unit) error {
		bundle, err := u.Bundle(f.ctx)
		if err != nil {
			return err
		}
		bundle.EthPriceUSD = d("1800")
		u.Save(bundle)
		for id, derived := range map[string]decimal.Decimal{
			usdc: numeric.SafeDiv(numeric.One, d("1800")),
			weth: numeric.One,
		} {
			token, err := u.Token(f.ctx, id)
			if err != nil {
				return err
			}
			token.DerivedETH = derived
			token.SetPriceUSD(derived.Mul(d("1800")))
			u.Save(token)
		}
		return nil
	})
}

func (f *fixture) swap(id string, txHash string) {
	f.apply(func(u *store.Unit) error {
		return f.engine.HandleSwap(f.ctx, u, Swap{
			EventMeta:    EventMeta{Pool: id, BlockNumber: 102, Timestamp: 1_700_000_100, TxHash: txHash, LogIndex: 3},
			Sender:       "0xrouter",
			Recipient:    "0xtrader",
			Amount0:      mustBig("1000000000"),
			Amount1:      mustBig("-500000000000000000"),
			SqrtPriceX96: sqrtPrice1800,
			Liquidity:    mustBig("1000000000000000000"),
			Tick:         200_000,
		})
	})
}

func assertNear(t *testing.T, want, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	tolerance := d("0.000000000001")
	assert.True(t, want.Sub(got).Abs().LessThanOrEqual(tolerance),
		append([]interface{}{"want %s got %s", want, got}, msgAndArgs...)...)
}

func TestRegisterPoolCreatesEntities(t *testing.T) {
	f := newFixture(t)
	register := func() {
		f.apply(func(u *store.Unit) error {
			return f.engine.RegisterPool(f.ctx, u, PoolCreated{
				EventMeta: EventMeta{Pool: xPool, BlockNumber: 7},
				Token0:    TokenInfo{ID: tokX, Symbol: "X", Decimals: 9},
				Token1:    TokenInfo{ID: weth, Symbol: "WETH", Decimals: 18},
				FeeTier:   500,
			})
		})
	}
	register()
	register()

	assert.Equal(t, uint64(1), f.factory().PoolCount)
	assert.Equal(t, []string{xPool}, f.token(tokX).WhitelistPools)
	assert.Empty(t, f.token(weth).WhitelistPools)
	assert.Equal(t, uint8(9), f.token(tokX).Decimals)

	pool := f.pool(xPool)
	assert.Equal(t, tokX, pool.Token0)
	assert.Equal(t, uint64(7), pool.CreatedAtBlock)
	assert.Zero(t, pool.Liquidity.Sign())
	assert.True(t, pool.FeeGrowthGlobal0X128.IsZero())

	bundle, err := store.NewUnit(f.backend).Bundle(f.ctx)
	require.NoError(t, err)
	assert.True(t, bundle.EthPriceUSD.IsZero())
}

func TestHandleInitializeSetsPrices(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)

	pool := f.pool(usdcPool)
	require.NotNil(t, pool.Tick)
	assert.Equal(t, int32(200_000), *pool.Tick)
	assertNear(t, d("1800"), pool.Token0Price)
	assertNear(t, numeric.SafeDiv(numeric.One, d("1800")), pool.Token1Price)

	// No liquidity yet: the native price stays unset while WETH is its own unit.
	assert.True(t, f.token(weth).DerivedETH.Equal(numeric.One))
	assert.True(t, f.token(usdc).DerivedETH.IsZero())
	assert.True(t, f.token(usdc).PriceUSD().Equal(numeric.One))
}

func TestMintAndBurnRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)
	f.mintUSDCPool(usdcPool)

	pool := f.pool(usdcPool)
	assert.True(t, pool.TotalValueLockedToken0.Equal(d("2000000")))
	assert.True(t, pool.TotalValueLockedToken1.Equal(d("1000")))
	assert.Zero(t, pool.Liquidity.Cmp(mustBig("1000000000000000000")))
	assert.True(t, pool.TotalValueLockedETH.Equal(d("1000")), pool.TotalValueLockedETH.String())
	assert.True(t, f.factory().TotalValueLockedETH.Equal(pool.TotalValueLockedETH))
	assert.Equal(t, 1, f.backend.Count(model.KindDeposit))

	deposits, ok, err := store.NewUnit(f.backend).PoolDeposits(f.ctx, usdcPool)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), deposits.Count)

	f.apply(func(u *store.Unit) error {
		return f.engine.HandleBurn(f.ctx, u, Burn{
			EventMeta: EventMeta{Pool: usdcPool, BlockNumber: 105, TxHash: "0xburn", LogIndex: 2},
			Owner:     "0xowner",
			TickLower: -887_220,
			TickUpper: 887_220,
			Amount:    mustBig("1000000000000000000"),
			Amount0:   mustBig("2000000000000"),
			Amount1:   mustBig("1000000000000000000000"),
		})
	})

	pool = f.pool(usdcPool)
	assert.True(t, pool.TotalValueLockedToken0.IsZero())
	assert.True(t, pool.TotalValueLockedToken1.IsZero())
	assert.Zero(t, pool.Liquidity.Sign())
	assert.True(t, f.factory().TotalValueLockedETH.IsZero())
	assert.Equal(t, uint64(2), pool.TxCount)
	assert.Equal(t, 1, f.backend.Count(model.KindWithdraw))

	deposits, _, err = store.NewUnit(f.backend).PoolDeposits(f.ctx, usdcPool)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), deposits.Count)
}

func TestMintOutOfRangeKeepsActiveLiquidity(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)
	f.apply(func(u *store.Unit) error {
		return f.engine.HandleMint(f.ctx, u, Mint{
			EventMeta: EventMeta{Pool: usdcPool, TxHash: "0xmint", LogIndex: 4},
			TickLower: 300_000,
			TickUpper: 300_060,
			Amount:    big.NewInt(1_000),
			Amount0:   big.NewInt(0),
			Amount1:   big.NewInt(5_000),
		})
	})
	assert.Zero(t, f.pool(usdcPool).Liquidity.Sign())
}

func TestSwapEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)
	f.mintUSDCPool(usdcPool)
	f.seedPrices()
	before := f.factory()

	f.swap(usdcPool, "0xswap")

	swap, ok, err := store.NewUnit(f.backend).FindSwap(f.ctx, "0xswap#2")
	require.NoError(t, err)
	require.True(t, ok)

	// 1000 USDC at $1 against 0.5 WETH at $1800, averaged.
	assertNear(t, d("950"), swap.AmountUSD)
	assert.True(t, swap.Amount0.Equal(d("1000")))
	assert.True(t, swap.Amount1.Equal(d("-0.5")))
	assert.Zero(t, swap.SqrtPriceX96.Cmp(sqrtPrice1800))

	factory := f.factory()
	assert.True(t, factory.TotalVolumeUSD.Sub(before.TotalVolumeUSD).Equal(swap.AmountUSD))
	assertNear(t, swap.AmountUSD.Mul(d("0.003")), factory.TotalFeesUSD)
	assertNear(t, d("2.85"), factory.TotalFeesUSD)
	assertNear(t, d("950").Div(d("1800")), factory.TotalVolumeETH)
	assertNear(t, d("950"), factory.UntrackedVolumeUSD)
	assert.Equal(t, before.TxCount+1, factory.TxCount)

	pool := f.pool(usdcPool)
	assert.True(t, pool.VolumeToken0.Equal(d("1000")))
	assert.True(t, pool.VolumeToken1.Equal(d("0.5")))
	assert.True(t, pool.VolumeUSD.Equal(swap.AmountUSD))
	assert.True(t, pool.FeesUSD.Equal(factory.TotalFeesUSD))
	assert.True(t, pool.TotalValueLockedToken0.Equal(d("2001000")))
	assert.True(t, pool.TotalValueLockedToken1.Equal(d("999.5")))
	assertNear(t, d("1000"), pool.TrackedVolumeToken0USD)
	assertNear(t, d("900"), pool.TrackedVolumeToken1USD)
	assertNear(t, d("950"), pool.TrackedVolumeUSD)
	assert.Equal(t, uint64(2), pool.TxCount)

	// Factory TVL is rebuilt from the single pool, not accumulated.
	assert.True(t, factory.TotalValueLockedETH.Equal(pool.TotalValueLockedETH))
	assertNear(t, d("2001000").Div(d("1800")).Add(d("999.5")), pool.TotalValueLockedETH)

	assert.True(t, pool.FeeGrowthGlobal0X128.Eq(uint256.MustFromBig(f.feeGrowth.growth0)))
	assert.True(t, pool.FeeGrowthGlobal1X128.Eq(uint256.MustFromBig(f.feeGrowth.growth1)))
	assert.Equal(t, 1, f.feeGrowth.calls)

	bundle, err := store.NewUnit(f.backend).Bundle(f.ctx)
	require.NoError(t, err)
	assertNear(t, d("1800"), bundle.EthPriceUSD)
	assertNear(t, d("1800"), swap.Token1PriceUSD)
	assert.True(t, swap.Token0PriceUSD.Equal(numeric.One))

	wethToken := f.token(weth)
	assert.True(t, wethToken.Volume.Equal(d("0.5")))
	assert.True(t, wethToken.TotalValueLocked.Equal(d("999.5")))
	assert.True(t, wethToken.VolumeUSD.Equal(swap.AmountUSD))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsHandled.WithLabelValues(model.EventSwap)))
}

func TestSwapReplayDoublesCounters(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)
	f.mintUSDCPool(usdcPool)
	f.seedPrices()

	f.swap(usdcPool, "0xswap")
	once := f.factory()
	oncePool := f.pool(usdcPool)

	f.swap(usdcPool, "0xswap")
	twice := f.factory()
	twicePool := f.pool(usdcPool)

	assert.Equal(t, once.TxCount+1, twice.TxCount)
	assert.True(t, twicePool.VolumeToken0.Equal(oncePool.VolumeToken0.Mul(numeric.Two)))
	assert.True(t, twicePool.VolumeToken1.Equal(oncePool.VolumeToken1.Mul(numeric.Two)))
	assertNear(t, once.TotalVolumeUSD.Mul(numeric.Two), twice.TotalVolumeUSD)
	assertNear(t, once.TotalFeesUSD.Mul(numeric.Two), twice.TotalFeesUSD)
	assert.True(t, twicePool.TotalValueLockedToken0.Equal(d("2002000")))

	// The same transaction yields distinct swap records.
	assert.Equal(t, 2, f.backend.Count(model.KindSwap))
}

func TestSwapDenylistedPoolIsNoop(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(badPool)
	f.mintUSDCPool(badPool)
	f.seedPrices()
	before := f.pool(badPool)

	f.apply(func(u *store.Unit) error {
		err := f.engine.HandleSwap(f.ctx, u, Swap{
			EventMeta: EventMeta{Pool: badPool, TxHash: "0xswap"},
			Amount0:   big.NewInt(1),
			Amount1:   big.NewInt(-1),
		})
		assert.Equal(t, 0, u.Pending())
		return err
	})

	after := f.pool(badPool)
	assert.Equal(t, before.TxCount, after.TxCount)
	assert.True(t, before.VolumeUSD.Equal(after.VolumeUSD))
	assert.Equal(t, 0, f.backend.Count(model.KindSwap))
	assert.Equal(t, 0, f.feeGrowth.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsSkipped.WithLabelValues(SkipDenylisted)))
}

func TestSwapUnknownPool(t *testing.T) {
	f := newFixture(t)
	err := f.engine.HandleSwap(f.ctx, store.NewUnit(f.backend), Swap{
		EventMeta:    EventMeta{Pool: xPool},
		Amount0:      big.NewInt(1),
		Amount1:      big.NewInt(-1),
		SqrtPriceX96: sqrtPrice1800,
		Liquidity:    big.NewInt(1),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestHandleSetFeeProtocol(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)
	f.apply(func(u *store.Unit) error {
		return f.engine.HandleSetFeeProtocol(f.ctx, u, SetFeeProtocol{
			EventMeta:    EventMeta{Pool: usdcPool},
			FeeProtocol0: 4,
			FeeProtocol1: 6,
		})
	})
	pool := f.pool(usdcPool)
	assert.Equal(t, uint8(4), pool.FeeProtocol0)
	assert.Equal(t, uint8(6), pool.FeeProtocol1)
}

// sqrt price of 2000 USDC per WETH in the same orientation as sqrtPrice1800.
var sqrtPrice2000 = mustBig("1771595571142957102961017161607260")

func assertWithin(t *testing.T, want, got decimal.Decimal, tolerance string) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThanOrEqual(d(tolerance)), "want %s got %s", want, got)
}

func TestSwapValuedAtPriorPricesThenRepriced(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)
	f.mintUSDCPool(usdcPool)
	f.seedPrices()

	f.apply(func(u *store.Unit) error {
		return f.engine.HandleSwap(f.ctx, u, Swap{
			EventMeta:    EventMeta{Pool: usdcPool, BlockNumber: 102, TxHash: "0xmove", LogIndex: 3},
			Amount0:      mustBig("1000000000"),
			Amount1:      mustBig("-500000000000000000"),
			SqrtPriceX96: sqrtPrice2000,
			Liquidity:    mustBig("1000000000000000000"),
			Tick:         201_000,
		})
	})

	swap, ok, err := store.NewUnit(f.backend).FindSwap(f.ctx, "0xmove#2")
	require.NoError(t, err)
	require.True(t, ok)
	// 1000 USDC at $1 and 0.5 WETH at the $1800 held before the swap.
	assertNear(t, d("950"), swap.AmountUSD)
	assertWithin(t, d("2000"), swap.Token1PriceUSD, "0.000001")

	bundle, err := store.NewUnit(f.backend).Bundle(f.ctx)
	require.NoError(t, err)
	assertWithin(t, d("2000"), bundle.EthPriceUSD, "0.000001")

	// 2,001,000 USDC and 999.5 WETH at $2000 per WETH.
	factory := f.factory()
	assertWithin(t, d("2000"), factory.TotalValueLockedETH, "0.000001")
	assertWithin(t, d("4000000"), factory.TotalValueLockedUSD, "0.001")
	assertWithin(t, d("4000000"), f.pool(usdcPool).TotalValueLockedUSD, "0.001")
	assertNear(t, d("950"), factory.TotalVolumeUSD)
}

func TestRegisterPoolSeedsBalances(t *testing.T) {
	f := newFixture(t)
	tick := int32(200_000)
	f.apply(func(u *store.Unit) error {
		return f.engine.RegisterPool(f.ctx, u, PoolCreated{
			EventMeta:    EventMeta{Pool: usdcPool, BlockNumber: 500},
			Token0:       TokenInfo{ID: usdc, Symbol: "USDC", Decimals: 6},
			Token1:       TokenInfo{ID: weth, Symbol: "WETH", Decimals: 18},
			FeeTier:      3000,
			TickSpacing:  60,
			Liquidity:    mustBig("1000000000000000000"),
			SqrtPriceX96: sqrtPrice1800,
			Tick:         &tick,
			Balance0:     mustBig("2000000000000"),
			Balance1:     mustBig("1000000000000000000000"),
		})
	})

	pool := f.pool(usdcPool)
	assert.True(t, pool.TotalValueLockedToken0.Equal(d("2000000")))
	assert.True(t, pool.TotalValueLockedToken1.Equal(d("1000")))
	assert.True(t, f.token(usdc).TotalValueLocked.Equal(d("2000000")))
	assert.True(t, f.token(weth).TotalValueLocked.Equal(d("1000")))

	bundle, err := store.NewUnit(f.backend).Bundle(f.ctx)
	require.NoError(t, err)
	assertNear(t, d("1800"), bundle.EthPriceUSD)

	factory := f.factory()
	assert.Equal(t, uint64(1), factory.PoolCount)
	assert.True(t, factory.TotalValueLockedETH.Equal(pool.TotalValueLockedETH))
	assertNear(t, d("2000000").Div(d("1800")).Add(d("1000")), pool.TotalValueLockedETH)
	assertWithin(t, d("3800000"), factory.TotalValueLockedUSD, "0.001")

	// Later liquidity builds on the seeded balances.
	f.mintUSDCPool(usdcPool)
	assert.True(t, f.pool(usdcPool).TotalValueLockedToken0.Equal(d("4000000")))
}

func TestRegisterPoolWithoutBalancesLeavesTVLEmpty(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)

	pool := f.pool(usdcPool)
	assert.True(t, pool.TotalValueLockedToken0.IsZero())
	assert.True(t, pool.TotalValueLockedETH.IsZero())
	assert.True(t, f.factory().TotalValueLockedUSD.IsZero())
}

func TestHandleInitializeRequiresSqrtPrice(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(usdcPool)

	err := f.engine.HandleInitialize(f.ctx, store.NewUnit(f.backend), Initialize{
		EventMeta: EventMeta{Pool: usdcPool, TxHash: "0xinit"},
		Tick:      1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without sqrt price")
}

func TestHandleInitializeCopiesSqrtPrice(t *testing.T) {
	f := newFixture(t)
	f.registerUSDCPool(xPool)

	sqrtPrice := new(big.Int).Set(sqrtPrice1800)
	f.apply(func(u *store.Unit) error {
		return f.engine.HandleInitialize(f.ctx, u, Initialize{
			EventMeta:    EventMeta{Pool: xPool, LogIndex: 2},
			SqrtPriceX96: sqrtPrice,
			Tick:         200_000,
		})
	})
	sqrtPrice.SetInt64(1)

	assert.Zero(t, f.pool(xPool).SqrtPrice.Cmp(sqrtPrice1800))
}

func TestSwapLogRendersTokenAmounts(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.DebugLevel)
	eng, err := New(Config{Network: f.engine.network, FeeGrowth: f.feeGrowth, Metrics: f.metrics}, zap.New(core))
	require.NoError(t, err)
	f.engine = eng

	f.registerUSDCPool(usdcPool)
	f.mintUSDCPool(usdcPool)
	f.seedPrices()
	f.swap(usdcPool, "0xswap")

	applied := logs.FilterMessage("swap applied").All()
	require.Len(t, applied, 1)
	fields := applied[0].ContextMap()
	assert.Equal(t, "1000.000000", fields["amount0"])
	assert.Equal(t, "-0.500000000000000000", fields["amount1"])

	minted := logs.FilterMessage("liquidity applied").All()
	require.NotEmpty(t, minted)
	assert.Equal(t, "2000000.000000", minted[0].ContextMap()["amount0"])
}
