package replay

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
)

// ErrUnsupportedEvent marks typed records the replay has no use for.
var ErrUnsupportedEvent = errors.New("unsupported event")

var feeDenominator = big.NewInt(fixedpoint.FeeDenominator)

// ConvertRecord maps a decoded pool event onto a replay event. Chain
// timestamps are seconds and become milliseconds.
func ConvertRecord(record model.TypedEventRecord) (model.Event, error) {
	ts := int64(record.Timestamp) * 1000
	switch strings.ToLower(record.EventName) {
	case "swap":
		data, err := record.DecodeSwap()
		if err != nil {
			return nil, err
		}
		return convertSwap(data, record.PoolMeta.Fee, ts)
	case "mint":
		data, err := record.DecodeMint()
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", data.Amount)
		if err != nil {
			return nil, err
		}
		return model.MintEvent{Timestamp: ts, Lower: data.TickLower, Upper: data.TickUpper, Amount: amount}, nil
	case "burn":
		data, err := record.DecodeBurn()
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", data.Amount)
		if err != nil {
			return nil, err
		}
		return model.BurnEvent{Timestamp: ts, Lower: data.TickLower, Upper: data.TickUpper, Amount: amount}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, record.EventName)
	}
}

// convertSwap reads direction from the signed pool deltas: the token flowing
// into the pool is positive. The fee is charged on the input amount.
func convertSwap(data model.SwapEventData, feePips uint32, ts int64) (model.SwapEvent, error) {
	amount0, err := model.ParseBigInt(data.Amount0)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse amount0: %w", err)
	}
	amount1, err := model.ParseBigInt(data.Amount1)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse amount1: %w", err)
	}

	var in, out *big.Int
	var zeroForOne bool
	switch {
	case amount0.Sign() > 0 && amount1.Sign() <= 0:
		zeroForOne, in, out = true, amount0, new(big.Int).Neg(amount1)
	case amount1.Sign() > 0 && amount0.Sign() <= 0:
		zeroForOne, in, out = false, amount1, new(big.Int).Neg(amount0)
	default:
		return model.SwapEvent{}, fmt.Errorf("swap without direction: amount0=%s amount1=%s", data.Amount0, data.Amount1)
	}

	sqrtX96, err := model.ParseBigInt(data.SqrtPriceX96)
	if err != nil {
		return model.SwapEvent{}, fmt.Errorf("parse sqrt price: %w", err)
	}
	sqrtAfter, err := fixedpoint.X96ToQ64(sqrtX96)
	if err != nil {
		return model.SwapEvent{}, err
	}
	liquidity, err := parseAmount("liquidity", data.Liquidity)
	if err != nil {
		return model.SwapEvent{}, err
	}

	fee := new(big.Int).Mul(in, big.NewInt(int64(feePips)))
	fee.Div(fee, feeDenominator)

	amountIn, _ := uint256.FromBig(in)
	amountOut, _ := uint256.FromBig(out)
	feeAmount, _ := uint256.FromBig(fee)
	return model.SwapEvent{
		Timestamp:      ts,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		ZeroForOne:     zeroForOne,
		SqrtPriceAfter: sqrtAfter,
		FeeAmount:      feeAmount,
		Liquidity:      liquidity,
		Tick:           data.Tick,
	}, nil
}

func parseAmount(name, value string) (*uint256.Int, error) {
	v, err := model.ParseBigInt(value)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("parse %s: negative value %s", name, value)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("parse %s: overflows 256 bits", name)
	}
	return out, nil
}
