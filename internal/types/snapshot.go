package types

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PortfolioSnapshot is the per-bar portfolio summary: one row is appended to
// the ledger after every simulated bar.
type PortfolioSnapshot struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	// Equity is initial equity + cumulative realized P&L + unrealized P&L.
	Equity        float64 `yaml:"equity" json:"equity" csv:"equity"`
	Cash          float64 `yaml:"cash" json:"cash" csv:"cash"`
	RealizedPnL   float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	UnrealizedPnL float64 `yaml:"unrealized_pnl" json:"unrealized_pnl" csv:"unrealized_pnl"`
	// PositionQuantity is the open position size after this bar's fills.
	PositionQuantity float64 `yaml:"position_quantity" json:"position_quantity" csv:"position_quantity"`
	ClosePrice       float64 `yaml:"close_price" json:"close_price" csv:"close_price"`
}

// AccountState is the aggregate equity curve emitted at the end of a run.
type AccountState struct {
	InitialEquity float64   `yaml:"initial_equity" json:"initial_equity"`
	FinalEquity   float64   `yaml:"final_equity" json:"final_equity"`
	RealizedPnL   float64   `yaml:"realized_pnl" json:"realized_pnl"`
	UnrealizedPnL float64   `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	TotalFees     float64   `yaml:"total_fees" json:"total_fees"`
	FinalTime     time.Time `yaml:"final_time" json:"final_time"`
	// OpenPositions holds any position still open after the final bar.
	OpenPositions []Position `yaml:"open_positions" json:"open_positions"`
}

// TradeResult summarizes the per-symbol win/loss statistics of a run.
type TradeResult struct {
	NumberOfTransactions  int     `yaml:"number_of_transactions" json:"number_of_transactions"`
	NumberOfWinningExits  int     `yaml:"number_of_winning_exits" json:"number_of_winning_exits"`
	NumberOfLosingExits   int     `yaml:"number_of_losing_exits" json:"number_of_losing_exits"`
	WinRate               float64 `yaml:"win_rate" json:"win_rate"`
	MaximumSingleExitLoss float64 `yaml:"maximum_single_exit_loss" json:"maximum_single_exit_loss"`
}

// RunStats is the full per-symbol statistics block written alongside the
// exported ledger.
type RunStats struct {
	Symbol      string       `yaml:"symbol" json:"symbol"`
	TradeResult TradeResult  `yaml:"trade_result" json:"trade_result"`
	TotalFees   float64      `yaml:"total_fees" json:"total_fees"`
	Account     AccountState `yaml:"account" json:"account"`
}

// WriteRunStats writes the run statistics to the given path as YAML.
func WriteRunStats(path string, stats []RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
