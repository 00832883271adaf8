package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// v3PoolABIJSON holds the pool events the replay consumes.
const v3PoolABIJSON = `[
{"type":"event","name":"Swap","inputs":[
  {"name":"sender","type":"address","indexed":true},
  {"name":"recipient","type":"address","indexed":true},
  {"name":"amount0","type":"int256"},
  {"name":"amount1","type":"int256"},
  {"name":"sqrtPriceX96","type":"uint160"},
  {"name":"liquidity","type":"uint128"},
  {"name":"tick","type":"int24"}]},
{"type":"event","name":"Mint","inputs":[
  {"name":"sender","type":"address"},
  {"name":"owner","type":"address","indexed":true},
  {"name":"tickLower","type":"int24","indexed":true},
  {"name":"tickUpper","type":"int24","indexed":true},
  {"name":"amount","type":"uint128"},
  {"name":"amount0","type":"uint256"},
  {"name":"amount1","type":"uint256"}]},
{"type":"event","name":"Burn","inputs":[
  {"name":"owner","type":"address","indexed":true},
  {"name":"tickLower","type":"int24","indexed":true},
  {"name":"tickUpper","type":"int24","indexed":true},
  {"name":"amount","type":"uint128"},
  {"name":"amount0","type":"uint256"},
  {"name":"amount1","type":"uint256"}]}
]`

var (
	v3PoolABI     abi.ABI
	v3PoolABIOnce sync.Once
	v3PoolABIErr  error
)

// V3PoolABI returns the parsed event ABI, shared by every decoder.
func V3PoolABI() (abi.ABI, error) {
	v3PoolABIOnce.Do(func() {
		v3PoolABI, v3PoolABIErr = abi.JSON(strings.NewReader(v3PoolABIJSON))
	})
	return v3PoolABI, v3PoolABIErr
}
