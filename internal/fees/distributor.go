// Package fees splits historical LP fees across simulated positions pro rata
// to their liquidity.
package fees

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
)

// DefaultMinDistribution is the smallest fee amount worth splitting.
const DefaultMinDistribution = 1000

// ShareMode selects how much of a swap fee the simulated positions earn.
type ShareMode string

const (
	// ShareFull credits the whole LP fee to the simulated positions.
	ShareFull ShareMode = "full"
	// SharePool credits fee * ours / (poolLiquidity + ours).
	SharePool ShareMode = "pool"
)

func ParseShareMode(value string) (ShareMode, error) {
	switch ShareMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ShareFull:
		return ShareFull, nil
	case SharePool:
		return SharePool, nil
	default:
		return "", fmt.Errorf("unknown fee share mode %q", value)
	}
}

type Config struct {
	MinDistribution *uint256.Int
	ShareMode       ShareMode
}

// Stake is a position's claim on fees. Stakes are passed in a stable order;
// the last eligible stake receives rounding dust.
type Stake struct {
	ID        string
	Liquidity *uint256.Int
	Lower     int32
	Upper     int32
}

// InRange reports whether the stake earns fees at tick.
func (s Stake) InRange(tick int32) bool {
	return s.Liquidity != nil && !s.Liquidity.IsZero() && s.Lower <= tick && tick < s.Upper
}

type Share struct {
	ID     string
	Amount *uint256.Int
}

// Distribution is the outcome of one fee split. Token is 0 or 1.
type Distribution struct {
	Token    int
	Total    *uint256.Int
	Shares   []Share
	Deferred bool
}

type Distributor struct {
	minDistribution *uint256.Int
	mode            ShareMode
	pending         [2]*uint256.Int
	logger          *zap.Logger
}

func NewDistributor(cfg Config, logger *zap.Logger) (*Distributor, error) {
	mode, err := ParseShareMode(string(cfg.ShareMode))
	if err != nil {
		return nil, err
	}
	minDistribution := uint256.NewInt(DefaultMinDistribution)
	if cfg.MinDistribution != nil {
		minDistribution = cfg.MinDistribution.Clone()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{
		minDistribution: minDistribution,
		mode:            mode,
		pending:         [2]*uint256.Int{new(uint256.Int), new(uint256.Int)},
		logger:          logger,
	}, nil
}

// Pending returns fees held back because they were below the threshold.
func (d *Distributor) Pending() (*uint256.Int, *uint256.Int) {
	return d.pending[0].Clone(), d.pending[1].Clone()
}

// OnSwapEvent splits the event's fee across stakes in range at tick. The fee is
// in the input token. poolLiquidity is the liquidity of everyone else and is
// only used in SharePool mode.
func (d *Distributor) OnSwapEvent(evt model.SwapEvent, tick int32, poolLiquidity *uint256.Int, stakes []Stake) Distribution {
	token := 1
	if evt.ZeroForOne {
		token = 0
	}
	out := Distribution{Token: token, Total: new(uint256.Int)}

	eligible, total := inRange(stakes, tick)
	fee := fixedpoint.OrZero(evt.FeeAmount)
	if len(eligible) == 0 || fee.IsZero() {
		return out
	}
	if d.mode == SharePool {
		denominator := new(uint256.Int).Add(total, fixedpoint.OrZero(poolLiquidity))
		fee = fixedpoint.MulDiv(fee, total, denominator)
	}

	amount := new(uint256.Int).Add(d.pending[token], fee)
	if amount.Lt(d.minDistribution) {
		d.pending[token] = amount
		out.Deferred = true
		d.logger.Debug("fee deferred",
			zap.Int("token", token),
			zap.String("pending", amount.Dec()),
		)
		return out
	}
	d.pending[token] = new(uint256.Int)
	out.Total = amount
	out.Shares = split(amount, eligible, total)
	return out
}

// Flush distributes any pending fees to stakes in range at tick regardless of
// the threshold. Pending fees stay when nobody is in range.
func (d *Distributor) Flush(tick int32, stakes []Stake) []Distribution {
	eligible, total := inRange(stakes, tick)
	if len(eligible) == 0 {
		return nil
	}
	var out []Distribution
	for token, amount := range d.pending {
		if amount.IsZero() {
			continue
		}
		out = append(out, Distribution{Token: token, Total: amount, Shares: split(amount, eligible, total)})
		d.pending[token] = new(uint256.Int)
	}
	return out
}

func inRange(stakes []Stake, tick int32) ([]Stake, *uint256.Int) {
	total := new(uint256.Int)
	var eligible []Stake
	for _, s := range stakes {
		if !s.InRange(tick) {
			continue
		}
		eligible = append(eligible, s)
		total.Add(total, s.Liquidity)
	}
	return eligible, total
}

// split assigns amount*liquidity/total to each stake and the remainder to the last.
func split(amount *uint256.Int, eligible []Stake, total *uint256.Int) []Share {
	shares := make([]Share, 0, len(eligible))
	distributed := new(uint256.Int)
	for i, s := range eligible {
		var part *uint256.Int
		if i == len(eligible)-1 {
			part = new(uint256.Int).Sub(amount, distributed)
		} else {
			part = fixedpoint.MulDiv(amount, s.Liquidity, total)
			distributed.Add(distributed, part)
		}
		shares = append(shares, Share{ID: s.ID, Amount: part})
	}
	return shares
}
