package position

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityLab/internal/fees"
	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
	"liquidityLab/internal/optimizer"
	"liquidityLab/internal/pool"
	"liquidityLab/internal/slippage"
	"liquidityLab/internal/swap"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDuplicateID         = errors.New("duplicate position id")
	ErrNotFound            = errors.New("position not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPositionClosed      = errors.New("position closed")
)

type Config struct {
	// MinSwap is the smallest rebalancing swap the optimizer may propose.
	MinSwap *uint256.Int
	Fees    fees.Config
	// IDSeed scopes generated position ids. Books with the same seed fed the
	// same calls generate the same ids.
	IDSeed string
}

var positionIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("liquiditylab:position"))

// Ledger counts every token flow that enters or leaves the book.
type Ledger struct {
	Deposited0     *uint256.Int
	Deposited1     *uint256.Int
	Withdrawn0     *uint256.Int
	Withdrawn1     *uint256.Int
	FeesEarned0    *uint256.Int
	FeesEarned1    *uint256.Int
	FeesCollected0 *uint256.Int
	FeesCollected1 *uint256.Int
	SwapFees0      *uint256.Int
	SwapFees1      *uint256.Int
	Slippage0      *uint256.Int
	Slippage1      *uint256.Int
}

func newLedger() Ledger {
	return Ledger{
		Deposited0: new(uint256.Int), Deposited1: new(uint256.Int),
		Withdrawn0: new(uint256.Int), Withdrawn1: new(uint256.Int),
		FeesEarned0: new(uint256.Int), FeesEarned1: new(uint256.Int),
		FeesCollected0: new(uint256.Int), FeesCollected1: new(uint256.Int),
		SwapFees0: new(uint256.Int), SwapFees1: new(uint256.Int),
		Slippage0: new(uint256.Int), Slippage1: new(uint256.Int),
	}
}

func (l Ledger) clone() Ledger {
	out := l
	for _, field := range []**uint256.Int{
		&out.Deposited0, &out.Deposited1, &out.Withdrawn0, &out.Withdrawn1,
		&out.FeesEarned0, &out.FeesEarned1, &out.FeesCollected0, &out.FeesCollected1,
		&out.SwapFees0, &out.SwapFees1, &out.Slippage0, &out.Slippage1,
	} {
		*field = (*field).Clone()
	}
	return out
}

// AddResult reports what AddLiquidity did.
type AddResult struct {
	Liquidity    *uint256.Int
	Amount0      *uint256.Int
	Amount1      *uint256.Int
	Optimization optimizer.Result
}

// CloseResult reports the tokens and fees a close returned to cash.
type CloseResult struct {
	ID      string
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	Fees0   *uint256.Int
	Fees1   *uint256.Int
}

// Book owns the simulated positions and cash of one replay. It is driven by a
// single loop and is not safe for concurrent use.
type Book struct {
	pool      *pool.Pool
	model     slippage.Model
	optimizer *optimizer.Optimizer
	fees      *fees.Distributor
	minSwap   *uint256.Int
	logger    *zap.Logger

	positions map[string]*Position
	order     []string

	cash0  *uint256.Int
	cash1  *uint256.Int
	ledger Ledger
	now    int64

	idSpace uuid.UUID
	idSeq   uint64
}

func NewBook(p *pool.Pool, model slippage.Model, cfg Config, logger *zap.Logger) (*Book, error) {
	if p == nil {
		return nil, errors.New("position book requires a pool")
	}
	if model == nil {
		return nil, errors.New("position book requires a slippage model")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	distributor, err := fees.NewDistributor(cfg.Fees, logger)
	if err != nil {
		return nil, fmt.Errorf("fee distributor: %w", err)
	}
	model.SetPoolLiquidity(p.Liquidity())
	return &Book{
		pool:      p,
		model:     model,
		optimizer: optimizer.New(p, swap.NewSimulator(p, model)),
		fees:      distributor,
		minSwap:   fixedpoint.OrZero(cfg.MinSwap).Clone(),
		logger:    logger,
		positions: make(map[string]*Position),
		cash0:     new(uint256.Int),
		cash1:     new(uint256.Int),
		ledger:    newLedger(),
		now:       p.LastEventAt(),
		idSpace:   uuid.NewSHA1(positionIDSpace, []byte(cfg.IDSeed)),
	}, nil
}

func (b *Book) Price() decimal.Decimal  { return b.pool.Price() }
func (b *Book) Tick() int32             { return b.pool.Tick() }
func (b *Book) SqrtPrice() *uint256.Int { return b.pool.SqrtPrice() }
func (b *Book) TickSpacing() int32      { return b.pool.TickSpacing() }
func (b *Book) Now() int64              { return b.now }

// PoolLiquidity is the active liquidity of the replayed pool, ours included.
func (b *Book) PoolLiquidity() *uint256.Int { return b.pool.Liquidity() }

// Optimizer exposes the liquidity math at the current pool price.
func (b *Book) Optimizer() *optimizer.Optimizer { return b.optimizer }

// Cash returns the uninvested balances.
func (b *Book) Cash() (*uint256.Int, *uint256.Int) {
	return b.cash0.Clone(), b.cash1.Clone()
}

// Advance moves the book clock forward; it never goes backwards.
func (b *Book) Advance(ts int64) {
	if ts > b.now {
		b.now = ts
	}
}

// Deposit adds cash.
func (b *Book) Deposit(amount0, amount1 *uint256.Int) error {
	amount0, amount1 = fixedpoint.OrZero(amount0), fixedpoint.OrZero(amount1)
	if amount0.IsZero() && amount1.IsZero() {
		return fmt.Errorf("deposit: %w: both amounts are zero", ErrInvalidAmount)
	}
	b.cash0.Add(b.cash0, amount0)
	b.cash1.Add(b.cash1, amount1)
	b.ledger.Deposited0.Add(b.ledger.Deposited0, amount0)
	b.ledger.Deposited1.Add(b.ledger.Deposited1, amount1)
	return nil
}

// Withdraw removes cash.
func (b *Book) Withdraw(amount0, amount1 *uint256.Int) error {
	amount0, amount1 = fixedpoint.OrZero(amount0), fixedpoint.OrZero(amount1)
	if amount0.IsZero() && amount1.IsZero() {
		return fmt.Errorf("withdraw: %w: both amounts are zero", ErrInvalidAmount)
	}
	if err := b.checkCash(amount0, amount1); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	b.cash0.Sub(b.cash0, amount0)
	b.cash1.Sub(b.cash1, amount1)
	b.ledger.Withdrawn0.Add(b.ledger.Withdrawn0, amount0)
	b.ledger.Withdrawn1.Add(b.ledger.Withdrawn1, amount1)
	return nil
}

// OpenPosition registers an empty position over [lower, upper). An empty id
// gets one derived from the book seed, the clock and a sequence number.
func (b *Book) OpenPosition(id string, lower, upper int32) (Position, error) {
	if id == "" {
		b.idSeq++
		id = uuid.NewSHA1(b.idSpace, []byte(fmt.Sprintf("%d/%d", b.now, b.idSeq))).String()
	}
	if _, ok := b.positions[id]; ok {
		return Position{}, fmt.Errorf("open position %q: %w", id, ErrDuplicateID)
	}
	if err := fixedpoint.ValidateRange(lower, upper, b.pool.TickSpacing()); err != nil {
		return Position{}, fmt.Errorf("open position %q: %w", id, err)
	}
	pos := newPosition(id, lower, upper, b.now)
	b.positions[id] = pos
	b.order = append(b.order, id)
	b.logger.Debug("position opened",
		zap.String("id", id),
		zap.Int32("lower", lower),
		zap.Int32("upper", upper),
	)
	return pos.Clone(), nil
}

// CreatePosition opens a position and funds it in one step. The position is
// discarded when funding fails.
func (b *Book) CreatePosition(id string, lower, upper int32, amount0, amount1 *uint256.Int) (Position, AddResult, error) {
	pos, err := b.OpenPosition(id, lower, upper)
	if err != nil {
		return Position{}, AddResult{}, err
	}
	res, err := b.AddLiquidity(pos.ID, amount0, amount1)
	if err != nil {
		b.discard(pos.ID)
		return Position{}, AddResult{}, err
	}
	created, _ := b.Position(pos.ID)
	return created, res, nil
}

// AddLiquidity spends up to amount0/amount1 of cash on liquidity for id,
// swapping first when the optimizer finds that it increases liquidity. Cash
// that the liquidity does not need stays in the book.
func (b *Book) AddLiquidity(id string, amount0, amount1 *uint256.Int) (AddResult, error) {
	pos, err := b.active(id)
	if err != nil {
		return AddResult{}, fmt.Errorf("add liquidity: %w", err)
	}
	amount0, amount1 = fixedpoint.OrZero(amount0), fixedpoint.OrZero(amount1)
	if amount0.IsZero() && amount1.IsZero() {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w: both amounts are zero", id, ErrInvalidAmount)
	}
	if err := b.checkCash(amount0, amount1); err != nil {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w", id, err)
	}

	opt, err := b.optimizer.OptimizeForMaxLiquidity(amount0, amount1, pos.Lower, pos.Upper, b.minSwap)
	if err != nil {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w", id, err)
	}
	if opt.Liquidity.IsZero() {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w: amounts back no liquidity", id, ErrInvalidAmount)
	}
	used0, used1, err := b.optimizer.AmountsFromLiquidity(opt.Liquidity, pos.Lower, pos.Upper)
	if err != nil {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w", id, err)
	}
	if used0.Gt(opt.FinalAmount0) || used1.Gt(opt.FinalAmount1) {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w: liquidity needs %s/%s", id, ErrInsufficientBalance, used0.Dec(), used1.Dec())
	}
	if err := b.pool.AddLiquidity(pos.Lower, pos.Upper, opt.Liquidity); err != nil {
		return AddResult{}, fmt.Errorf("add liquidity %q: %w", id, err)
	}

	if opt.NeedSwap {
		b.applySwap(pos, *opt.SwapResult)
	}
	b.cash0.Sub(b.cash0, used0)
	b.cash1.Sub(b.cash1, used1)
	pos.Liquidity.Add(pos.Liquidity, opt.Liquidity)
	pos.Added0.Add(pos.Added0, used0)
	pos.Added1.Add(pos.Added1, used1)
	pos.UpdatedAt = b.now
	b.model.SetPoolLiquidity(b.pool.Liquidity())

	b.logger.Debug("liquidity added",
		zap.String("id", id),
		zap.String("liquidity", opt.Liquidity.Dec()),
		zap.String("amount0", used0.Dec()),
		zap.String("amount1", used1.Dec()),
		zap.Stringer("optimization", opt),
	)
	return AddResult{Liquidity: opt.Liquidity.Clone(), Amount0: used0, Amount1: used1, Optimization: opt}, nil
}

// RemoveLiquidity withdraws delta liquidity from id into cash at the current price.
func (b *Book) RemoveLiquidity(id string, delta *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	pos, err := b.active(id)
	if err != nil {
		return nil, nil, fmt.Errorf("remove liquidity: %w", err)
	}
	if delta == nil || delta.IsZero() {
		return nil, nil, fmt.Errorf("remove liquidity %q: %w: zero liquidity", id, ErrInvalidAmount)
	}
	if delta.Gt(pos.Liquidity) {
		return nil, nil, fmt.Errorf("remove liquidity %q: %w: %s exceeds position liquidity %s", id, ErrInvalidAmount, delta.Dec(), pos.Liquidity.Dec())
	}
	return b.withdrawLiquidity(pos, delta)
}

func (b *Book) withdrawLiquidity(pos *Position, delta *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	delta = delta.Clone()
	amount0, amount1, err := b.optimizer.AmountsFromLiquidity(delta, pos.Lower, pos.Upper)
	if err != nil {
		return nil, nil, fmt.Errorf("remove liquidity %q: %w", pos.ID, err)
	}
	if err := b.pool.RemoveLiquidity(pos.Lower, pos.Upper, delta); err != nil {
		return nil, nil, fmt.Errorf("remove liquidity %q: %w", pos.ID, err)
	}
	b.cash0.Add(b.cash0, amount0)
	b.cash1.Add(b.cash1, amount1)
	pos.Liquidity.Sub(pos.Liquidity, delta)
	pos.Removed0.Add(pos.Removed0, amount0)
	pos.Removed1.Add(pos.Removed1, amount1)
	pos.UpdatedAt = b.now
	b.model.SetPoolLiquidity(b.pool.Liquidity())

	b.logger.Debug("liquidity removed",
		zap.String("id", pos.ID),
		zap.String("liquidity", delta.Dec()),
		zap.String("amount0", amount0.Dec()),
		zap.String("amount1", amount1.Dec()),
	)
	return amount0, amount1, nil
}

// ClosePosition flushes pending fees, withdraws all liquidity, collects fees
// and marks the position closed. Closing a closed position is a no-op.
func (b *Book) ClosePosition(id string) (CloseResult, error) {
	pos, ok := b.positions[id]
	if !ok {
		return CloseResult{}, fmt.Errorf("close position %q: %w", id, ErrNotFound)
	}
	res := CloseResult{
		ID:      id,
		Amount0: new(uint256.Int),
		Amount1: new(uint256.Int),
		Fees0:   new(uint256.Int),
		Fees1:   new(uint256.Int),
	}
	if pos.Closed {
		return res, nil
	}

	b.credit(b.fees.Flush(b.pool.Tick(), b.stakes())...)

	if !pos.Liquidity.IsZero() {
		amount0, amount1, err := b.withdrawLiquidity(pos, pos.Liquidity)
		if err != nil {
			return CloseResult{}, fmt.Errorf("close position: %w", err)
		}
		res.Amount0, res.Amount1 = amount0, amount1
	}
	res.Fees0, res.Fees1 = b.collect(pos)

	pos.Closed = true
	pos.ClosedAt = b.now
	pos.UpdatedAt = b.now
	b.logger.Debug("position closed",
		zap.String("id", id),
		zap.String("amount0", res.Amount0.Dec()),
		zap.String("amount1", res.Amount1.Dec()),
		zap.String("fees0", res.Fees0.Dec()),
		zap.String("fees1", res.Fees1.Dec()),
	)
	return res, nil
}

// CloseAll closes every open position in creation order.
func (b *Book) CloseAll() ([]CloseResult, error) {
	var out []CloseResult
	for _, id := range b.order {
		if b.positions[id].Closed {
			continue
		}
		res, err := b.ClosePosition(id)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// CollectFees moves the fees owed to id into cash.
func (b *Book) CollectFees(id string) (*uint256.Int, *uint256.Int, error) {
	pos, ok := b.positions[id]
	if !ok {
		return nil, nil, fmt.Errorf("collect fees %q: %w", id, ErrNotFound)
	}
	fees0, fees1 := b.collect(pos)
	return fees0, fees1, nil
}

// PositionAmounts returns the tokens currently backing id.
func (b *Book) PositionAmounts(id string) (*uint256.Int, *uint256.Int, error) {
	pos, ok := b.positions[id]
	if !ok {
		return nil, nil, fmt.Errorf("position amounts %q: %w", id, ErrNotFound)
	}
	amount0, amount1 := pos.Amounts(b.pool.SqrtPrice())
	return amount0, amount1, nil
}

// OnSwapEvent applies a historical swap to the pool and credits its fee to
// the positions that were in range before the swap moved the price.
func (b *Book) OnSwapEvent(evt model.SwapEvent) (fees.Distribution, error) {
	tick := b.pool.Tick()
	others := b.otherLiquidity(evt)
	if err := b.pool.ApplySwapEvent(evt); err != nil {
		return fees.Distribution{}, err
	}
	b.model.SetPoolLiquidity(b.pool.Liquidity())
	b.model.OnSwapEvent(evt)
	b.Advance(evt.Timestamp)

	dist := b.fees.OnSwapEvent(evt, tick, others, b.stakes())
	b.credit(dist)
	return dist, nil
}

// OnMintEvent applies historical liquidity added by others.
func (b *Book) OnMintEvent(evt model.MintEvent) error {
	if err := b.pool.ApplyMintEvent(evt); err != nil {
		return err
	}
	b.model.SetPoolLiquidity(b.pool.Liquidity())
	b.Advance(evt.Timestamp)
	return nil
}

// OnBurnEvent applies historical liquidity removed by others.
func (b *Book) OnBurnEvent(evt model.BurnEvent) error {
	if err := b.pool.ApplyBurnEvent(evt); err != nil {
		return err
	}
	b.model.SetPoolLiquidity(b.pool.Liquidity())
	b.Advance(evt.Timestamp)
	return nil
}

// otherLiquidity is the in-range liquidity not owned by the book.
func (b *Book) otherLiquidity(evt model.SwapEvent) *uint256.Int {
	if evt.Liquidity != nil && !evt.Liquidity.IsZero() {
		return evt.Liquidity.Clone()
	}
	ours := new(uint256.Int)
	tick := b.pool.Tick()
	for _, id := range b.order {
		if pos := b.positions[id]; pos.InRange(tick) {
			ours.Add(ours, pos.Liquidity)
		}
	}
	return fixedpoint.SubFloor(b.pool.Liquidity(), ours)
}

func (b *Book) stakes() []fees.Stake {
	out := make([]fees.Stake, 0, len(b.order))
	for _, id := range b.order {
		pos := b.positions[id]
		if pos.Closed || pos.Liquidity.IsZero() {
			continue
		}
		out = append(out, fees.Stake{ID: id, Liquidity: pos.Liquidity.Clone(), Lower: pos.Lower, Upper: pos.Upper})
	}
	return out
}

func (b *Book) credit(dists ...fees.Distribution) {
	for _, dist := range dists {
		for _, share := range dist.Shares {
			pos, ok := b.positions[share.ID]
			if !ok {
				continue
			}
			if dist.Token == 0 {
				pos.FeesOwed0.Add(pos.FeesOwed0, share.Amount)
				pos.AccumulatedFees0.Add(pos.AccumulatedFees0, share.Amount)
				b.ledger.FeesEarned0.Add(b.ledger.FeesEarned0, share.Amount)
			} else {
				pos.FeesOwed1.Add(pos.FeesOwed1, share.Amount)
				pos.AccumulatedFees1.Add(pos.AccumulatedFees1, share.Amount)
				b.ledger.FeesEarned1.Add(b.ledger.FeesEarned1, share.Amount)
			}
		}
	}
}

func (b *Book) collect(pos *Position) (*uint256.Int, *uint256.Int) {
	fees0, fees1 := pos.FeesOwed0, pos.FeesOwed1
	b.cash0.Add(b.cash0, fees0)
	b.cash1.Add(b.cash1, fees1)
	b.ledger.FeesCollected0.Add(b.ledger.FeesCollected0, fees0)
	b.ledger.FeesCollected1.Add(b.ledger.FeesCollected1, fees1)
	pos.FeesOwed0, pos.FeesOwed1 = new(uint256.Int), new(uint256.Int)
	return fees0, fees1
}

// applySwap settles a rebalancing swap in cash and books its costs on pos.
func (b *Book) applySwap(pos *Position, q swap.Result) {
	if q.ZeroForOne {
		b.cash0.Sub(b.cash0, q.AmountIn)
		b.cash1.Add(b.cash1, q.AmountOut)
		pos.SwapFees0.Add(pos.SwapFees0, q.Fee)
		pos.Slippage1.Add(pos.Slippage1, q.SlippageAmount)
		b.ledger.SwapFees0.Add(b.ledger.SwapFees0, q.Fee)
		b.ledger.Slippage1.Add(b.ledger.Slippage1, q.SlippageAmount)
	} else {
		b.cash1.Sub(b.cash1, q.AmountIn)
		b.cash0.Add(b.cash0, q.AmountOut)
		pos.SwapFees1.Add(pos.SwapFees1, q.Fee)
		pos.Slippage0.Add(pos.Slippage0, q.SlippageAmount)
		b.ledger.SwapFees1.Add(b.ledger.SwapFees1, q.Fee)
		b.ledger.Slippage0.Add(b.ledger.Slippage0, q.SlippageAmount)
	}
	b.logger.Debug("rebalance swap",
		zap.String("id", pos.ID),
		zap.Bool("zero_for_one", q.ZeroForOne),
		zap.String("amount_in", q.AmountIn.Dec()),
		zap.String("amount_out", q.AmountOut.Dec()),
		zap.String("fee", q.Fee.Dec()),
		zap.String("slippage", q.SlippagePct.String()),
	)
}

func (b *Book) checkCash(amount0, amount1 *uint256.Int) error {
	if amount0.Gt(b.cash0) || amount1.Gt(b.cash1) {
		return fmt.Errorf("%w: need %s/%s, have %s/%s", ErrInsufficientBalance,
			amount0.Dec(), amount1.Dec(), b.cash0.Dec(), b.cash1.Dec())
	}
	return nil
}

func (b *Book) active(id string) (*Position, error) {
	pos, ok := b.positions[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if pos.Closed {
		return nil, fmt.Errorf("%q: %w", id, ErrPositionClosed)
	}
	return pos, nil
}

func (b *Book) discard(id string) {
	delete(b.positions, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}
