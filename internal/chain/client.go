// Package chain is the JSON-RPC client the indexer and the decoders read through.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

// timestampCacheSize bounds the block timestamps kept across batches.
const timestampCacheSize = 16_384

// Client reads logs, headers and contract state from one RPC endpoint.
type Client struct {
	rpc        *rpc.Client
	eth        *ethclient.Client
	timestamps *lru.Cache[uint64, uint64]
}

// NewClient dials rpcURL. The URL is left out of errors since it often
// carries an API key.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is empty")
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c, err := newClient(rpcClient, timestampCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return c, nil
}

func newClient(rpcClient *rpc.Client, cacheSize int) (*Client, error) {
	timestamps, err := lru.New[uint64, uint64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("timestamp cache: %w", err)
	}
	return &Client{
		rpc:        rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		timestamps: timestamps,
	}, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return id, nil
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return head, nil
}

// BlockTimestamp returns the timestamp of block number. Timestamps never
// change for a block, so recent ones are served from memory.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.timestamps.Get(number); ok {
		return ts, nil
	}
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", number, err)
	}
	c.timestamps.Add(number, header.Time)
	return header.Time, nil
}

// FilterLogs returns logs in [fromBlock, toBlock] whose topic0 is one of
// topic0. Empty addresses match every emitter and empty topic0 every event.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.eth.FilterLogs(ctx, query)
}

// CallContract runs an eth_call. A nil block reads the latest state;
// historical blocks need an archive node.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}
