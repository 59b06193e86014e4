package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeeGrowthFetcher reads feeGrowthGlobal0X128/1X128 from a pool at a block.
type FeeGrowthFetcher struct {
	chain ContractCaller
}

func NewFeeGrowthFetcher(chainClient ContractCaller) *FeeGrowthFetcher {
	return &FeeGrowthFetcher{chain: chainClient}
}

// FeeGrowthGlobals returns both accumulators. A zero block reads latest state.
func (f *FeeGrowthFetcher) FeeGrowthGlobals(ctx context.Context, pool string, block uint64) (*big.Int, *big.Int, error) {
	if f.chain == nil {
		return nil, nil, fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(pool) {
		return nil, nil, fmt.Errorf("invalid pool address: %s", pool)
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pool abi: %w", err)
	}

	address := common.HexToAddress(pool)

	var growth [2]*big.Int
	for i, method := range []string{"feeGrowthGlobal0X128", "feeGrowthGlobal1X128"} {
		value, err := callOne(ctx, f.chain, address, poolABI, blockArg(block), method)
		if err != nil {
			return nil, nil, err
		}
		if growth[i], err = asBigInt(value); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", method, err)
		}
	}
	return growth[0], growth[1], nil
}
