package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:       "0x1111111111111111111111111111111111111111",
		Recipient:    "0x2222222222222222222222222222222222222222",
		Amount0:      "12345678901234567890",
		Amount1:      "-42",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "5000000000000000000",
		Tick:         10,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount0", "amount1", "sqrt_price_x96", "liquidity"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestTypedEventUnmarshalPayload(t *testing.T) {
	line := `{"chain_id":137,"block_number":22757547,"tx_hash":"0xabc","log_index":3,
		"address":"0x1f98431c8ad98523631ae4a59f267346ea31f984","event_name":"PoolCreated",
		"decoded":{"token0":"0x2791bca1f2de4661ed88a30c99a7a9449aa84174","token1":"0x7ceb23fd6bc0add59e62ac25578270cff1b9f619","fee":500,"tick_spacing":10,"pool":"0x45dda9cb7c25131df268515131f647d726f50608"},
		"pool_meta":{},
		"tokens":[{"address":"0x2791bca1f2de4661ed88a30c99a7a9449aa84174","symbol":"USDC","decimals":6}]}`

	event := &TypedEvent{}
	if err := json.Unmarshal([]byte(line), event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	created, ok := event.Decoded.(PoolCreatedEventData)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Decoded)
	}
	if created.Fee != 500 || created.TickSpacing != 10 || created.Pool != "0x45dda9cb7c25131df268515131f647d726f50608" {
		t.Fatalf("unexpected payload %+v", created)
	}
	if event.BlockNumber != 22757547 || event.LogIndex != 3 || len(event.Tokens) != 1 || event.Tokens[0].Decimals != 6 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestTypedEventRejectsBadPayload(t *testing.T) {
	for _, line := range []string{
		`{"event_name":"Collect","decoded":{}}`,
		`{"event_name":"Swap"}`,
		`{"event_name":"Swap","decoded":null}`,
		`{"event_name":"Mint","decoded":{"tick_lower":"x"}}`,
	} {
		var event TypedEvent
		if err := json.Unmarshal([]byte(line), &event); err == nil {
			t.Fatalf("expected error for %s", line)
		}
	}
}

func TestTypedEventJSONLRoundTrip(t *testing.T) {
	sent := TypedEvent{
		BlockNumber: 7,
		EventName:   EventSwap,
		Decoded:     SwapEventData{Amount0: "-1", Amount1: "2", SqrtPriceX96: "3", Liquidity: "4", Tick: -5},
		Raw:         &RawLogRef{Topic0: "0xc42079f9", Data: "0x"},
	}
	data, err := json.Marshal(sent)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var got TypedEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	swap, ok := got.Decoded.(SwapEventData)
	if !ok || swap != sent.Decoded {
		t.Fatalf("payload mismatch: %#v", got.Decoded)
	}
	if got.Raw == nil || got.Raw.Topic0 != "0xc42079f9" || got.BlockNumber != 7 {
		t.Fatalf("envelope mismatch: %+v", got)
	}
}
