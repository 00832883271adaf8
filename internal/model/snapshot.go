package model

// Snapshot captures pool and book state at one replay observation point.
// Token quantities are decimal strings.
type Snapshot struct {
	RunID            string            `json:"run_id"`
	Timestamp        int64             `json:"timestamp_ms"`
	SqrtPriceX64     string            `json:"sqrt_price_x64"`
	Price            string            `json:"price"`
	Tick             int32             `json:"tick"`
	PoolLiquidity    string            `json:"pool_liquidity"`
	Cash0            string            `json:"cash0"`
	Cash1            string            `json:"cash1"`
	PositionAmount0  string            `json:"position_amount0"`
	PositionAmount1  string            `json:"position_amount1"`
	FeesOwed0        string            `json:"fees_owed0"`
	FeesOwed1        string            `json:"fees_owed1"`
	CollectedFees0   string            `json:"collected_fees0"`
	CollectedFees1   string            `json:"collected_fees1"`
	Costs0           string            `json:"costs0"`
	Costs1           string            `json:"costs1"`
	ValueInToken1    string            `json:"value_in_token1"`
	OpenPositions    int               `json:"open_positions"`
	InRangePositions int               `json:"in_range_positions"`
	Positions        []PositionSummary `json:"positions,omitempty"`
}

// PositionSummary is the per-position part of a snapshot.
type PositionSummary struct {
	ID        string `json:"id"`
	Lower     int32  `json:"tick_lower"`
	Upper     int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	FeeOwed0  string `json:"fee_owed0"`
	FeeOwed1  string `json:"fee_owed1"`
	InRange   bool   `json:"in_range"`
	Closed    bool   `json:"closed"`
}

// RunSummary records the outcome of a finished replay.
type RunSummary struct {
	RunID        string   `json:"run_id"`
	Name         string   `json:"name"`
	Input        string   `json:"input"`
	StartedAt    int64    `json:"started_at_ms"`
	FirstEventAt int64    `json:"first_event_ms"`
	LastEventAt  int64    `json:"last_event_ms"`
	Swaps        int      `json:"swaps"`
	Mints        int      `json:"mints"`
	Burns        int      `json:"burns"`
	WarmUp       int      `json:"warm_up"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
	Final        Snapshot `json:"final"`
	Metrics      Metrics  `json:"metrics"`
}

// Metrics values the book in token1 at the final price. DivergenceLoss is the
// part of PnL caused by the price moving away from where liquidity was added.
type Metrics struct {
	HoldValue      string `json:"hold_value"`
	FinalValue     string `json:"final_value"`
	PnL            string `json:"pnl"`
	ReturnPct      string `json:"return_pct"`
	FeeValue       string `json:"fee_value"`
	CostValue      string `json:"cost_value"`
	DivergenceLoss string `json:"divergence_loss"`
	FeeAPR         string `json:"fee_apr"`
}
