package dex

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityLab/internal/model"
)

func newTestDecoder(t *testing.T) (*V3PoolDecoder, abi.ABI) {
	t.Helper()
	poolABI, err := V3PoolABI()
	require.NoError(t, err)
	decoder, err := NewV3PoolDecoder(DecoderConfig{})
	require.NoError(t, err)
	return decoder, poolABI
}

func TestV3PoolDecoderSwap(t *testing.T) {
	decoder, poolABI := newTestDecoder(t)

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	pools := NewPoolRegistry()
	require.NoError(t, pools.Register(pool, model.PoolMeta{
		Token0:      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Token1:      "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Fee:         2500,
		TickSpacing: 60,
	}))
	ctx := DecodeContext{Pools: pools, Logger: zap.NewNop()}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-1000),
		big.NewInt(2000),
		big.NewInt(123456789),
		big.NewInt(987654321),
		big.NewInt(-15),
	)
	require.NoError(t, err)

	event, err := decoder.Decode(buildLogRecord(pool, poolABI.Events["Swap"].ID, data, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(recipient),
	}), ctx)
	require.NoError(t, err)

	swap, ok := event.Decoded.(model.SwapEventData)
	require.True(t, ok, "got %T", event.Decoded)
	assert.Equal(t, "-1000", swap.Amount0)
	assert.Equal(t, "2000", swap.Amount1)
	assert.Equal(t, int32(-15), swap.Tick)
	assert.Equal(t, sender.Hex(), swap.Sender)
	assert.Equal(t, recipient.Hex(), swap.Recipient)
	assert.Equal(t, uint32(2500), event.PoolMeta.Fee)
	assert.Equal(t, int32(60), event.PoolMeta.TickSpacing)
}

func TestV3PoolDecoderMintBurn(t *testing.T) {
	decoder, poolABI := newTestDecoder(t)

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	pools := NewPoolRegistry()
	require.NoError(t, pools.SetFallback(model.PoolMeta{Fee: 500, TickSpacing: 10}))
	ctx := DecodeContext{Pools: pools, Logger: zap.NewNop()}

	sender := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	mintData, err := poolABI.Events["Mint"].Inputs.NonIndexed().Pack(
		sender,
		big.NewInt(5000),
		big.NewInt(100),
		big.NewInt(200),
	)
	require.NoError(t, err)
	mintEvent, err := decoder.Decode(buildLogRecord(pool, poolABI.Events["Mint"].ID, mintData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-120),
		topicFromInt24(120),
	}), ctx)
	require.NoError(t, err)

	mint, ok := mintEvent.Decoded.(model.MintEventData)
	require.True(t, ok, "got %T", mintEvent.Decoded)
	assert.Equal(t, int32(-120), mint.TickLower)
	assert.Equal(t, int32(120), mint.TickUpper)
	assert.Equal(t, "5000", mint.Amount)

	burnData, err := poolABI.Events["Burn"].Inputs.NonIndexed().Pack(
		big.NewInt(7000),
		big.NewInt(300),
		big.NewInt(400),
	)
	require.NoError(t, err)
	burnEvent, err := decoder.Decode(buildLogRecord(pool, poolABI.Events["Burn"].ID, burnData, []common.Hash{
		topicFromAddress(owner),
		topicFromInt24(-60),
		topicFromInt24(60),
	}), ctx)
	require.NoError(t, err)

	burn, ok := burnEvent.Decoded.(model.BurnEventData)
	require.True(t, ok, "got %T", burnEvent.Decoded)
	assert.Equal(t, "7000", burn.Amount)
	assert.Equal(t, int32(10), burnEvent.PoolMeta.TickSpacing, "fallback meta applies")
}

func TestV3PoolDecoderSkipsCollect(t *testing.T) {
	decoder, poolABI := newTestDecoder(t)

	collectTopic := crypto.Keccak256Hash([]byte("Collect(address,address,int24,int24,uint128,uint128)"))
	assert.False(t, decoder.CanDecode(collectTopic.Hex()))
	assert.False(t, decoder.CanDecode(""))

	swapTopic := "0x" + strings.ToUpper(poolABI.Events["Swap"].ID.Hex()[2:])
	assert.True(t, decoder.CanDecode(swapTopic), "topics match case-insensitively")
}

func TestV3PoolDecoderUnknownPool(t *testing.T) {
	decoder, poolABI := newTestDecoder(t)

	data, err := poolABI.Events["Burn"].Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(2), big.NewInt(3))
	require.NoError(t, err)
	pool := common.HexToAddress("0x4444444444444444444444444444444444444444")
	logRecord := buildLogRecord(pool, poolABI.Events["Burn"].ID, data, []common.Hash{
		topicFromAddress(pool),
		topicFromInt24(-10),
		topicFromInt24(10),
	})

	_, err = decoder.Decode(logRecord, DecodeContext{Pools: NewPoolRegistry()})
	assert.ErrorIs(t, err, ErrUnknownPool)
}

func TestV3PoolDecoderTopicOverride(t *testing.T) {
	custom := "0x1234000000000000000000000000000000000000000000000000000000000000"
	decoder, err := NewV3PoolDecoder(DecoderConfig{Topic0Map: map[string]string{custom: " swap "}})
	require.NoError(t, err)
	assert.True(t, decoder.CanDecode(custom))

	_, err = NewV3PoolDecoder(DecoderConfig{Topic0Map: map[string]string{custom: "collect"}})
	assert.Error(t, err, "collect has no decoder")
}

func buildLogRecord(pool common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     56,
		BlockNumber: 12345,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    1,
		Address:     pool.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromInt24(value int32) common.Hash {
	bigVal := big.NewInt(int64(value))
	if value < 0 {
		bigVal = new(big.Int).Add(bigVal, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(bigVal)
}
