package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLedger/internal/model"
)

type addressCache[V any] struct {
	mu   sync.RWMutex
	data map[common.Address]V
}

func newAddressCache[V any]() *addressCache[V] {
	return &addressCache[V]{data: make(map[common.Address]V)}
}

func (c *addressCache[V]) Get(address common.Address) (V, bool) {
	c.mu.RLock()
	value, ok := c.data[address]
	c.mu.RUnlock()
	return value, ok
}

func (c *addressCache[V]) Set(address common.Address, value V) {
	c.mu.Lock()
	c.data[address] = value
	c.mu.Unlock()
}

// PoolMetaCache holds immutable pool metadata by pool address.
type PoolMetaCache = addressCache[model.PoolMeta]

// TokenMetaCache holds ERC20 metadata by token address.
type TokenMetaCache = addressCache[model.TokenMeta]

func NewPoolMetaCache() *PoolMetaCache {
	return newAddressCache[model.PoolMeta]()
}

func NewTokenMetaCache() *TokenMetaCache {
	return newAddressCache[model.TokenMeta]()
}

// FetchPoolMeta reads the immutable pool parameters at the latest block.
func FetchPoolMeta(ctx context.Context, chainClient ContractCaller, pool common.Address) (model.PoolMeta, error) {
	if chainClient == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var tokens [2]common.Address
	for i, method := range []string{"token0", "token1"} {
		value, err := callOne(ctx, chainClient, pool, poolABI, nil, method)
		if err != nil {
			return model.PoolMeta{}, err
		}
		if tokens[i], err = asAddress(value); err != nil {
			return model.PoolMeta{}, fmt.Errorf("%s: %w", method, err)
		}
	}

	value, err := callOne(ctx, chainClient, pool, poolABI, nil, "fee")
	if err != nil {
		return model.PoolMeta{}, err
	}
	fee, err := asBigInt(value)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("fee: %w", err)
	}

	value, err = callOne(ctx, chainClient, pool, poolABI, nil, "tickSpacing")
	if err != nil {
		return model.PoolMeta{}, err
	}
	tickSpacing, err := asInt24(value)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}

	return model.PoolMeta{
		Token0:      tokens[0].Hex(),
		Token1:      tokens[1].Hex(),
		Fee:         uint32(fee.Uint64()),
		TickSpacing: tickSpacing,
	}, nil
}

// FetchPoolState fills meta with liquidity, slot0 and the pool's token
// balances as of block. Any failed read fails the whole call so a pool is
// never registered from partial state.
func FetchPoolState(ctx context.Context, chainClient ContractCaller, pool common.Address, meta model.PoolMeta, block uint64) (model.PoolMeta, error) {
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return meta, fmt.Errorf("parse pool abi: %w", err)
	}
	erc20, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	at := blockArg(block)

	value, err := callOne(ctx, chainClient, pool, poolABI, at, "liquidity")
	if err != nil {
		return meta, err
	}
	liquidity, err := asBigInt(value)
	if err != nil {
		return meta, fmt.Errorf("liquidity: %w", err)
	}

	values, err := call(ctx, chainClient, pool, poolABI, at, "slot0")
	if err != nil {
		return meta, err
	}
	if len(values) < 2 {
		return meta, fmt.Errorf("slot0: unexpected outputs %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return meta, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tick, err := asInt24(values[1])
	if err != nil {
		return meta, fmt.Errorf("slot0 tick: %w", err)
	}

	var balances [2]string
	for i, token := range []string{meta.Token0, meta.Token1} {
		if !common.IsHexAddress(token) {
			return meta, fmt.Errorf("invalid token address: %s", token)
		}
		value, err := callOne(ctx, chainClient, common.HexToAddress(token), erc20, at, "balanceOf", pool)
		if err != nil {
			return meta, fmt.Errorf("token%d: %w", i, err)
		}
		balance, err := asBigInt(value)
		if err != nil {
			return meta, fmt.Errorf("token%d balance: %w", i, err)
		}
		balances[i] = balance.String()
	}

	meta.Liquidity = liquidity.String()
	meta.Slot0 = &model.PoolSlot0{SqrtPriceX96: sqrtPrice.String(), Tick: tick}
	meta.Balance0 = balances[0]
	meta.Balance1 = balances[1]
	return meta, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Only decimals is
// required; symbol and name fall back to their bytes32 form and then to empty.
func FetchTokenMeta(ctx context.Context, chainClient ContractCaller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	erc20, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	value, err := callOne(ctx, chainClient, token, erc20, nil, "decimals")
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(value); err != nil {
		return meta, err
	}

	for _, field := range []struct {
		method string
		dst    *string
	}{
		{"symbol", &meta.Symbol},
		{"name", &meta.Name},
	} {
		text, err := readText(ctx, chainClient, token, field.method)
		if err != nil {
			logger.Debug(field.method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
			continue
		}
		*field.dst = text
	}
	return meta, nil
}

func readText(ctx context.Context, chainClient ContractCaller, token common.Address, method string) (string, error) {
	erc20, err := ERC20ABI()
	if err != nil {
		return "", err
	}
	value, err := callOne(ctx, chainClient, token, erc20, nil, method)
	if err == nil {
		if text, ok := value.(string); ok {
			return text, nil
		}
	}

	legacy, perr := erc20Bytes32ABI.get()
	if perr != nil {
		return "", perr
	}
	value, err = callOne(ctx, chainClient, token, legacy, nil, method)
	if err != nil {
		return "", err
	}
	text, ok := bytes32ToString(value)
	if !ok {
		return "", fmt.Errorf("%s: unsupported type %T", method, value)
	}
	return text, nil
}

// call runs a view method at block (nil means latest) and unpacks its outputs.
func call(ctx context.Context, chainClient ContractCaller, to common.Address, parsed abi.ABI, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := chainClient.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return values, nil
}

func callOne(ctx context.Context, chainClient ContractCaller, to common.Address, parsed abi.ABI, block *big.Int, method string, args ...interface{}) (interface{}, error) {
	values, err := call(ctx, chainClient, to, parsed, block, method, args...)
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

func blockArg(block uint64) *big.Int {
	if block == 0 {
		return nil
	}
	return new(big.Int).SetUint64(block)
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

// asInt24 converts an ABI int24 output (decoded as *big.Int) to int32.
func asInt24(value interface{}) (int32, error) {
	v, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	return int24FromBig(v)
}

func int24FromBig(value *big.Int) (int32, error) {
	if value.Cmp(big.NewInt(-1<<23)) < 0 || value.Cmp(big.NewInt(1<<23-1)) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
