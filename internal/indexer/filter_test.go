package indexer

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const (
	factoryAddr = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	poolAddr    = "0x45dda9cb7c25131df268515131f647d726f50608"
	swapTopic   = "0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"
)

func TestNewFilterAddsFactoryAndDedupes(t *testing.T) {
	filter, err := NewFilter(
		[]string{poolAddr, " ", "0x45DDA9CB7C25131DF268515131F647D726F50608"},
		[]string{swapTopic, swapTopic},
		factoryAddr,
		nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantAddrs := []common.Address{common.HexToAddress(poolAddr), common.HexToAddress(factoryAddr)}
	if !reflect.DeepEqual(filter.Addresses, wantAddrs) {
		t.Fatalf("addresses mismatch: %v != %v", filter.Addresses, wantAddrs)
	}
	if len(filter.Topic0) != 1 || filter.Topic0[0] != common.HexToHash(swapTopic) {
		t.Fatalf("topics mismatch: %v", filter.Topic0)
	}
}

func TestNewFilterDefaults(t *testing.T) {
	defaults := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	filter, err := NewFilter(nil, nil, factoryAddr, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No address filter means any emitter; the factory is not forced in.
	if len(filter.Addresses) != 0 {
		t.Fatalf("expected open address filter, got %v", filter.Addresses)
	}
	if !reflect.DeepEqual(filter.Topic0, defaults) {
		t.Fatalf("topics mismatch: %v", filter.Topic0)
	}
}

func TestNewFilterInvalid(t *testing.T) {
	if _, err := NewFilter([]string{"0x1234"}, nil, factoryAddr, nil); err == nil {
		t.Fatalf("expected error for short address")
	}
	if _, err := NewFilter(nil, []string{"0x1234"}, factoryAddr, nil); err == nil {
		t.Fatalf("expected error for short topic0")
	}
	if _, err := NewFilter(nil, []string{"swap"}, factoryAddr, nil); err == nil {
		t.Fatalf("expected error for non-hex topic0")
	}
}

func TestBlockRanges(t *testing.T) {
	var got []BlockRange
	for r := range blockRanges(100, 105, 2) {
		got = append(got, r)
	}
	want := []BlockRange{{From: 100, To: 101}, {From: 102, To: 103}, {From: 104, To: 105}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}

	got = nil
	for r := range blockRanges(5, 5, 10) {
		got = append(got, r)
	}
	if !reflect.DeepEqual(got, []BlockRange{{From: 5, To: 5}}) {
		t.Fatalf("single range mismatch: %+v", got)
	}

	// Stops without wrapping at the top of the uint64 range.
	got = nil
	for r := range blockRanges(^uint64(0)-1, ^uint64(0), 1) {
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 ranges at the upper bound, got %+v", got)
	}
}
