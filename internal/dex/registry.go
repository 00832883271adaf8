package dex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidityLab/internal/model"
)

// ErrUnknownPool is returned when a log comes from a pool with no metadata.
var ErrUnknownPool = errors.New("unknown pool")

const maxFeePips = 1_000_000

// PoolRegistry holds static pool metadata by address. The fallback entry,
// when set, answers for any address not registered explicitly.
type PoolRegistry struct {
	mu       sync.RWMutex
	data     map[common.Address]model.PoolMeta
	fallback *model.PoolMeta
}

func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{data: make(map[common.Address]model.PoolMeta)}
}

// Register stores meta for address after validating fee and spacing.
func (r *PoolRegistry) Register(address common.Address, meta model.PoolMeta) error {
	if err := ValidatePoolMeta(meta); err != nil {
		return fmt.Errorf("register %s: %w", address.Hex(), err)
	}
	r.mu.Lock()
	r.data[address] = meta
	r.mu.Unlock()
	return nil
}

// SetFallback installs metadata used for unregistered pools.
func (r *PoolRegistry) SetFallback(meta model.PoolMeta) error {
	if err := ValidatePoolMeta(meta); err != nil {
		return fmt.Errorf("fallback pool meta: %w", err)
	}
	r.mu.Lock()
	r.fallback = &meta
	r.mu.Unlock()
	return nil
}

// Lookup returns the metadata for address, falling back when configured.
func (r *PoolRegistry) Lookup(address common.Address) (model.PoolMeta, bool) {
	if r == nil {
		return model.PoolMeta{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if meta, ok := r.data[address]; ok {
		return meta, true
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return model.PoolMeta{}, false
}

// Len counts explicitly registered pools.
func (r *PoolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// ValidatePoolMeta checks the fields the replay depends on.
func ValidatePoolMeta(meta model.PoolMeta) error {
	if meta.Fee >= maxFeePips {
		return fmt.Errorf("fee %d must be below %d", meta.Fee, maxFeePips)
	}
	if meta.TickSpacing <= 0 {
		return fmt.Errorf("tick spacing %d must be > 0", meta.TickSpacing)
	}
	return nil
}

// ParsePoolSpec parses "fee/tickSpacing" or "fee/tickSpacing/token0/token1".
func ParsePoolSpec(spec string) (model.PoolMeta, error) {
	parts := strings.Split(strings.TrimSpace(spec), "/")
	if len(parts) != 2 && len(parts) != 4 {
		return model.PoolMeta{}, fmt.Errorf("invalid pool spec %q: want fee/tickSpacing[/token0/token1]", spec)
	}
	fee, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse fee in %q: %w", spec, err)
	}
	spacing, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse tick spacing in %q: %w", spec, err)
	}
	meta := model.PoolMeta{Fee: uint32(fee), TickSpacing: int32(spacing)}
	if len(parts) == 4 {
		for i, token := range parts[2:] {
			if !common.IsHexAddress(token) {
				return model.PoolMeta{}, fmt.Errorf("invalid token%d address %q", i, token)
			}
		}
		meta.Token0 = common.HexToAddress(parts[2]).Hex()
		meta.Token1 = common.HexToAddress(parts[3]).Hex()
	}
	return meta, ValidatePoolMeta(meta)
}

// NewPoolRegistryFromSpecs builds a registry from address -> spec entries.
func NewPoolRegistryFromSpecs(specs map[string]string) (*PoolRegistry, error) {
	registry := NewPoolRegistry()
	for address, spec := range specs {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid pool address %q", address)
		}
		meta, err := ParsePoolSpec(spec)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(common.HexToAddress(address), meta); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
