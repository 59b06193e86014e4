package indexer

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Filter selects the logs fetched from chain. Empty Addresses match every
// emitter of Topic0.
type Filter struct {
	Addresses []common.Address
	Topic0    []common.Hash
}

// NewFilter parses address and topic0 inputs, dropping blanks and repeats.
// A non-empty address list always gains the factory, so pools created inside
// the range are still discovered. Empty topics fall back to defaultTopics.
func NewFilter(addresses, topics []string, factory string, defaultTopics []common.Hash) (Filter, error) {
	var filter Filter
	seenAddr := mapset.NewThreadUnsafeSet[common.Address]()
	for _, input := range addresses {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return Filter{}, fmt.Errorf("invalid address: %s", input)
		}
		if addr := common.HexToAddress(input); seenAddr.Add(addr) {
			filter.Addresses = append(filter.Addresses, addr)
		}
	}
	if len(filter.Addresses) > 0 && common.IsHexAddress(factory) {
		if addr := common.HexToAddress(factory); seenAddr.Add(addr) {
			filter.Addresses = append(filter.Addresses, addr)
		}
	}

	seenTopic := mapset.NewThreadUnsafeSet[common.Hash]()
	for _, input := range topics {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != common.HashLength {
			return Filter{}, fmt.Errorf("invalid topic0 length: %s", input)
		}
		if topic := common.BytesToHash(data); seenTopic.Add(topic) {
			filter.Topic0 = append(filter.Topic0, topic)
		}
	}
	if len(filter.Topic0) == 0 {
		filter.Topic0 = append(filter.Topic0, defaultTopics...)
	}
	return filter, nil
}
