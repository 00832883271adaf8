package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// EventKind tags replay events in native JSONL streams.
type EventKind string

const (
	KindSwap EventKind = "swap"
	KindMint EventKind = "mint"
	KindBurn EventKind = "burn"
)

// Event is one entry of an ordered replay stream.
type Event interface {
	Kind() EventKind
	Time() int64
}

// SwapEvent is a historical swap. Sqrt prices are Q64.64 and timestamps are
// unix milliseconds. Nil optional fields mean "not reported".
type SwapEvent struct {
	Timestamp       int64
	AmountIn        *uint256.Int
	AmountOut       *uint256.Int
	ZeroForOne      bool
	SqrtPriceBefore *uint256.Int
	SqrtPriceAfter  *uint256.Int
	FeeAmount       *uint256.Int
	Liquidity       *uint256.Int
	Tick            int32
	ReserveA        *uint256.Int
	ReserveB        *uint256.Int
}

func (e SwapEvent) Kind() EventKind { return KindSwap }
func (e SwapEvent) Time() int64     { return e.Timestamp }

// MintEvent adds liquidity to [Lower, Upper) in the pool ledger.
type MintEvent struct {
	Timestamp int64
	Lower     int32
	Upper     int32
	Amount    *uint256.Int
}

func (e MintEvent) Kind() EventKind { return KindMint }
func (e MintEvent) Time() int64     { return e.Timestamp }

// BurnEvent removes liquidity from [Lower, Upper) in the pool ledger.
type BurnEvent struct {
	Timestamp int64
	Lower     int32
	Upper     int32
	Amount    *uint256.Int
}

func (e BurnEvent) Kind() EventKind { return KindBurn }
func (e BurnEvent) Time() int64     { return e.Timestamp }

type swapEventJSON struct {
	Type            EventKind `json:"type"`
	Timestamp       int64     `json:"timestamp"`
	AmountIn        string    `json:"amount_in"`
	AmountOut       string    `json:"amount_out"`
	ZeroForOne      bool      `json:"zero_for_one"`
	SqrtPriceBefore string    `json:"sqrt_price_before,omitempty"`
	SqrtPriceAfter  string    `json:"sqrt_price_after"`
	FeeAmount       string    `json:"fee_amount"`
	Liquidity       string    `json:"liquidity,omitempty"`
	Tick            int32     `json:"tick"`
	ReserveA        string    `json:"reserve_a,omitempty"`
	ReserveB        string    `json:"reserve_b,omitempty"`
}

type rangeEventJSON struct {
	Type      EventKind `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Lower     int32     `json:"tick_lower"`
	Upper     int32     `json:"tick_upper"`
	Amount    string    `json:"amount"`
}

// MarshalJSON encodes big integers as decimal strings.
func (e SwapEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(swapEventJSON{
		Type:            KindSwap,
		Timestamp:       e.Timestamp,
		AmountIn:        FormatUint(e.AmountIn),
		AmountOut:       FormatUint(e.AmountOut),
		ZeroForOne:      e.ZeroForOne,
		SqrtPriceBefore: formatOptional(e.SqrtPriceBefore),
		SqrtPriceAfter:  FormatUint(e.SqrtPriceAfter),
		FeeAmount:       FormatUint(e.FeeAmount),
		Liquidity:       formatOptional(e.Liquidity),
		Tick:            e.Tick,
		ReserveA:        formatOptional(e.ReserveA),
		ReserveB:        formatOptional(e.ReserveB),
	})
}

// UnmarshalJSON decodes the string-encoded form written by MarshalJSON.
func (e *SwapEvent) UnmarshalJSON(data []byte) error {
	var raw swapEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := SwapEvent{Timestamp: raw.Timestamp, ZeroForOne: raw.ZeroForOne, Tick: raw.Tick}
	fields := []struct {
		name string
		src  string
		dst  **uint256.Int
	}{
		{"amount_in", raw.AmountIn, &out.AmountIn},
		{"amount_out", raw.AmountOut, &out.AmountOut},
		{"sqrt_price_before", raw.SqrtPriceBefore, &out.SqrtPriceBefore},
		{"sqrt_price_after", raw.SqrtPriceAfter, &out.SqrtPriceAfter},
		{"fee_amount", raw.FeeAmount, &out.FeeAmount},
		{"liquidity", raw.Liquidity, &out.Liquidity},
		{"reserve_a", raw.ReserveA, &out.ReserveA},
		{"reserve_b", raw.ReserveB, &out.ReserveB},
	}
	for _, f := range fields {
		v, err := ParseUint(f.src)
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}
	*e = out
	return nil
}

// MarshalJSON encodes the mint with a string amount.
func (e MintEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeEventJSON{Type: KindMint, Timestamp: e.Timestamp, Lower: e.Lower, Upper: e.Upper, Amount: FormatUint(e.Amount)})
}

// UnmarshalJSON decodes a mint line.
func (e *MintEvent) UnmarshalJSON(data []byte) error {
	raw, amount, err := decodeRangeEvent(data)
	if err != nil {
		return err
	}
	*e = MintEvent{Timestamp: raw.Timestamp, Lower: raw.Lower, Upper: raw.Upper, Amount: amount}
	return nil
}

// MarshalJSON encodes the burn with a string amount.
func (e BurnEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeEventJSON{Type: KindBurn, Timestamp: e.Timestamp, Lower: e.Lower, Upper: e.Upper, Amount: FormatUint(e.Amount)})
}

// UnmarshalJSON decodes a burn line.
func (e *BurnEvent) UnmarshalJSON(data []byte) error {
	raw, amount, err := decodeRangeEvent(data)
	if err != nil {
		return err
	}
	*e = BurnEvent{Timestamp: raw.Timestamp, Lower: raw.Lower, Upper: raw.Upper, Amount: amount}
	return nil
}

func decodeRangeEvent(data []byte) (rangeEventJSON, *uint256.Int, error) {
	var raw rangeEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, nil, err
	}
	amount, err := ParseUint(raw.Amount)
	if err != nil {
		return raw, nil, fmt.Errorf("parse amount: %w", err)
	}
	return raw, amount, nil
}

// DecodeEvent decodes one native JSONL line, dispatching on its "type" field.
func DecodeEvent(line []byte) (Event, error) {
	var head struct {
		Type EventKind `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return nil, err
	}
	switch EventKind(strings.ToLower(string(head.Type))) {
	case KindSwap:
		var evt SwapEvent
		err := json.Unmarshal(line, &evt)
		return evt, err
	case KindMint:
		var evt MintEvent
		err := json.Unmarshal(line, &evt)
		return evt, err
	case KindBurn:
		var evt BurnEvent
		err := json.Unmarshal(line, &evt)
		return evt, err
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}

// ParseUint parses an optional unsigned decimal string; "" yields nil.
func ParseUint(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	return uint256.FromDecimal(value)
}

// FormatUint renders v as a decimal string, nil as "0".
func FormatUint(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func formatOptional(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}
