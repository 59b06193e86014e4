package model

import (
	"encoding/json"
	"fmt"
)

// LogRecord is a raw chain log as archived by sync and read back by decode.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// TypedEvent is one decoded factory or pool event. Decoded holds the
// *EventData struct named by EventName; Tokens carries ERC20 metadata for the
// pool tokens when the decoder had it.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	BlockHash   string      `json:"block_hash"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	PoolMeta    PoolMeta    `json:"pool_meta"`
	Tokens      []TokenMeta `json:"tokens,omitempty"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef points back at the undecoded log.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// UnmarshalJSON restores Decoded as the payload struct for EventName, so
// typed events survive a JSONL round trip between commands.
func (e *TypedEvent) UnmarshalJSON(data []byte) error {
	type plain TypedEvent
	aux := struct {
		*plain
		Decoded json.RawMessage `json:"decoded"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var (
		decoded interface{}
		err     error
	)
	switch e.EventName {
	case EventPoolCreated:
		decoded, err = unmarshalPayload[PoolCreatedEventData](aux.Decoded)
	case EventInitialize:
		decoded, err = unmarshalPayload[InitializeEventData](aux.Decoded)
	case EventSwap:
		decoded, err = unmarshalPayload[SwapEventData](aux.Decoded)
	case EventMint:
		decoded, err = unmarshalPayload[MintEventData](aux.Decoded)
	case EventBurn:
		decoded, err = unmarshalPayload[BurnEventData](aux.Decoded)
	case EventSetFeeProtocol:
		decoded, err = unmarshalPayload[SetFeeProtocolEventData](aux.Decoded)
	default:
		return fmt.Errorf("unsupported event name: %q", e.EventName)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventName, err)
	}
	e.Decoded = decoded
	return nil
}

func unmarshalPayload[T any](data json.RawMessage) (T, error) {
	var out T
	if len(data) == 0 || string(data) == "null" {
		return out, fmt.Errorf("empty payload")
	}
	err := json.Unmarshal(data, &out)
	return out, err
}
