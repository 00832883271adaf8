package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"liquidityLab/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	Topic0Map map[string]string
}

// V3PoolDecoder decodes the Swap, Mint and Burn events of Uniswap V3 style
// pools. Other topics (Collect, Flash, ...) do not move price or liquidity
// and are reported as undecodable so callers can skip them.
type V3PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewV3PoolDecoder builds a V3 pool decoder.
func NewV3PoolDecoder(cfg DecoderConfig) (*V3PoolDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[string]string{
		strings.ToLower(poolABI.Events["Swap"].ID.Hex()): "Swap",
		strings.ToLower(poolABI.Events["Mint"].ID.Hex()): "Mint",
		strings.ToLower(poolABI.Events["Burn"].ID.Hex()): "Burn",
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &V3PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *V3PoolDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *V3PoolDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	poolMeta, ok := ctx.Pools.Lookup(pool)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, pool.Hex())
	}

	decoded, err := d.decodePayload(name, log)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.ToLower(name), err)
	}

	ctx.logger().Debug("pool event decoded",
		zap.String("event", name),
		zap.String("pool", pool.Hex()),
		zap.Uint64("block", log.BlockNumber),
	)
	return buildTypedEvent(log, name, decoded, poolMeta), nil
}

func (d *V3PoolDecoder) decodePayload(name string, log model.LogRecord) (interface{}, error) {
	fields, err := d.readFields(name, log)
	if err != nil {
		return nil, err
	}
	switch name {
	case model.EventSwap:
		return decodeSwap(fields)
	case model.EventMint:
		return decodeMint(fields)
	case model.EventBurn:
		return decodeBurn(fields)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "swap":
		return model.EventSwap
	case "mint":
		return model.EventMint
	case "burn":
		return model.EventBurn
	default:
		return ""
	}
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}, meta model.PoolMeta) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    meta,
		Raw:         raw,
	}
}

func decodeSwap(f *fieldReader) (model.SwapEventData, error) {
	out := model.SwapEventData{
		Sender:       f.address("sender"),
		Recipient:    f.address("recipient"),
		Amount0:      f.integer("amount0"),
		Amount1:      f.integer("amount1"),
		SqrtPriceX96: f.integer("sqrtPriceX96"),
		Liquidity:    f.integer("liquidity"),
		Tick:         f.tick("tick"),
	}
	return out, f.err
}

func decodeMint(f *fieldReader) (model.MintEventData, error) {
	out := model.MintEventData{
		Sender:    f.address("sender"),
		Owner:     f.address("owner"),
		TickLower: f.tick("tickLower"),
		TickUpper: f.tick("tickUpper"),
		Amount:    f.integer("amount"),
		Amount0:   f.integer("amount0"),
		Amount1:   f.integer("amount1"),
	}
	return out, f.err
}

func decodeBurn(f *fieldReader) (model.BurnEventData, error) {
	out := model.BurnEventData{
		Owner:     f.address("owner"),
		TickLower: f.tick("tickLower"),
		TickUpper: f.tick("tickUpper"),
		Amount:    f.integer("amount"),
		Amount0:   f.integer("amount0"),
		Amount1:   f.integer("amount1"),
	}
	return out, f.err
}

// readFields unpacks both the indexed topics and the data of a log into one
// name keyed map.
func (d *V3PoolDecoder) readFields(name string, log model.LogRecord) (*fieldReader, error) {
	event := d.poolABI.Events[name]
	indexed := make(abi.Arguments, 0, len(event.Inputs))
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	topics := make([]common.Hash, 0, len(indexed))
	for _, topic := range log.Topics[1:] {
		raw, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(raw) > common.HashLength {
			return nil, fmt.Errorf("topic length %d", len(raw))
		}
		topics = append(topics, common.BytesToHash(raw))
	}

	values := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}
	return &fieldReader{values: values}, nil
}
