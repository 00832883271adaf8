package replay

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"liquidityLab/internal/fees"
	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
	"liquidityLab/internal/position"
)

// Strategy drives the book during a replay. Init runs once before the first
// event is applied, OnTick on every tick-interval boundary and OnSwap after
// each historical swap.
type Strategy interface {
	Init(book *position.Book) error
	OnTick(book *position.Book, now int64) error
	OnSwap(book *position.Book, evt model.SwapEvent, dist fees.Distribution) error
}

// Passive never touches the book; the replay then only tracks the pool.
type Passive struct{}

func (Passive) Init(*position.Book) error         { return nil }
func (Passive) OnTick(*position.Book, int64) error { return nil }
func (Passive) OnSwap(*position.Book, model.SwapEvent, fees.Distribution) error {
	return nil
}

// RangeStrategy deposits its budget and provides it as one position of
// Width ticks centred on the current tick. With Recenter set, an
// out-of-range position is closed on the next tick and the proceeds are
// redeployed around the new price.
type RangeStrategy struct {
	Width    int32
	Amount0  *uint256.Int
	Amount1  *uint256.Int
	Recenter bool

	current    string
	Rebalances int
}

// Init funds the book and opens the first range.
func (s *RangeStrategy) Init(book *position.Book) error {
	if s.Width <= 0 {
		return fmt.Errorf("range width must be > 0, got %d", s.Width)
	}
	if err := book.Deposit(fixedpoint.OrZero(s.Amount0), fixedpoint.OrZero(s.Amount1)); err != nil {
		return fmt.Errorf("deposit budget: %w", err)
	}
	return s.open(book)
}

// OnTick recenters when the current position has left its range.
func (s *RangeStrategy) OnTick(book *position.Book, _ int64) error {
	if !s.Recenter || s.current == "" {
		return nil
	}
	pos, ok := book.Position(s.current)
	if !ok || pos.InRange(book.Tick()) {
		return nil
	}
	if _, err := book.ClosePosition(s.current); err != nil {
		return fmt.Errorf("close out-of-range position: %w", err)
	}
	s.Rebalances++
	return s.open(book)
}

func (s *RangeStrategy) OnSwap(*position.Book, model.SwapEvent, fees.Distribution) error {
	return nil
}

// Range returns the ticks a new position would use at tick.
func (s *RangeStrategy) Range(tick, spacing int32) (int32, int32) {
	half := s.Width / 2
	lower := fixedpoint.NearestUsableTick(tick-half, spacing)
	upper := fixedpoint.NearestUsableTick(tick+half, spacing)
	if upper <= lower {
		upper = lower + spacing
	}
	return lower, upper
}

func (s *RangeStrategy) open(book *position.Book) error {
	cash0, cash1 := book.Cash()
	if cash0.IsZero() && cash1.IsZero() {
		s.current = ""
		return nil
	}
	lower, upper := s.Range(book.Tick(), book.TickSpacing())
	pos, _, err := book.CreatePosition("", lower, upper, cash0, cash1)
	if errors.Is(err, position.ErrInvalidAmount) {
		// dust that backs no liquidity stays in cash
		s.current = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("open range [%d, %d]: %w", lower, upper, err)
	}
	s.current = pos.ID
	return nil
}
