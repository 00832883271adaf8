package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Event names carried in TypedEvent.EventName.
const (
	EventSwap = "Swap"
	EventMint = "Mint"
	EventBurn = "Burn"
)

// TypedEvent is a decoded pool event enriched with pool metadata.
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
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// TypedEventRecord is the read side of TypedEvent; Decoded is parsed lazily
// once EventName is known.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PoolMeta    PoolMeta        `json:"pool_meta"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// PoolMeta captures pool metadata; Slot0 optionally seeds the replay price.
type PoolMeta struct {
	Token0      string     `json:"token0"`
	Token1      string     `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing int32      `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity,omitempty"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
}

// PoolSlot0 includes select slot0 fields.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// SwapEventData is the decoded Swap event payload. Amounts are signed from the
// pool's point of view: positive flows into the pool.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// MintEventData is the decoded Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is the decoded Burn event payload.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// DecodeSwap parses the record payload as a swap.
func (r TypedEventRecord) DecodeSwap() (SwapEventData, error) {
	var out SwapEventData
	if !strings.EqualFold(r.EventName, EventSwap) {
		return out, fmt.Errorf("event %q is not a swap", r.EventName)
	}
	if err := json.Unmarshal(r.Decoded, &out); err != nil {
		return out, fmt.Errorf("decode swap payload: %w", err)
	}
	return out, nil
}

// DecodeMint parses the record payload as a mint.
func (r TypedEventRecord) DecodeMint() (MintEventData, error) {
	var out MintEventData
	if !strings.EqualFold(r.EventName, EventMint) {
		return out, fmt.Errorf("event %q is not a mint", r.EventName)
	}
	if err := json.Unmarshal(r.Decoded, &out); err != nil {
		return out, fmt.Errorf("decode mint payload: %w", err)
	}
	return out, nil
}

// DecodeBurn parses the record payload as a burn.
func (r TypedEventRecord) DecodeBurn() (BurnEventData, error) {
	var out BurnEventData
	if !strings.EqualFold(r.EventName, EventBurn) {
		return out, fmt.Errorf("event %q is not a burn", r.EventName)
	}
	if err := json.Unmarshal(r.Decoded, &out); err != nil {
		return out, fmt.Errorf("decode burn payload: %w", err)
	}
	return out, nil
}

// ParseBigInt parses a base-10 integer string, empty meaning zero.
func ParseBigInt(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(big.Int), nil
	}
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return out, nil
}
