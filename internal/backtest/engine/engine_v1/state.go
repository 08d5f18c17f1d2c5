package engine

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BacktestState is the portfolio and account ledger: an append-only log of
// transactions plus one portfolio snapshot per simulated bar, stored in an
// in-memory DuckDB so results can be queried and exported to Parquet.
//
// FIFO lots live in Go (SQL aggregation cannot express lot matching); the
// database holds the durable, exportable record. One simulation run owns one
// state instance; it is never shared across runs.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType

	positions     map[string]*types.Position
	initialEquity float64
	realizedPnL   decimal.Decimal
	totalFees     decimal.Decimal
	cash          decimal.Decimal
}

// NewBacktestState creates a ledger backed by an in-memory DuckDB.
func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open ledger database", err)
	}

	return &BacktestState{
		db:            db,
		logger:        logger,
		sq:            squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		positions:     make(map[string]*types.Position),
		initialEquity: 0,
		realizedPnL:   decimal.Zero,
		totalFees:     decimal.Zero,
		cash:          decimal.Zero,
	}, nil
}

// Initialize creates the ledger tables and seeds the account with the given
// initial equity.
func (b *BacktestState) Initialize(initialEquity float64) error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			quantity DOUBLE,
			price DOUBLE,
			time TIMESTAMP,
			fee DOUBLE,
			realized_pnl DOUBLE,
			intent_id TEXT,
			rule_name TEXT,
			reason TEXT,
			message TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create transactions table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			time TIMESTAMP,
			symbol TEXT,
			equity DOUBLE,
			cash DOUBLE,
			realized_pnl DOUBLE,
			unrealized_pnl DOUBLE,
			position_quantity DOUBLE,
			close_price DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create snapshots table", err)
	}

	b.positions = make(map[string]*types.Position)
	b.initialEquity = initialEquity
	b.realizedPnL = decimal.Zero
	b.totalFees = decimal.Zero
	b.cash = decimal.NewFromFloat(initialEquity)

	return nil
}

// Fill describes one simulated execution handed to the ledger.
type Fill struct {
	IntentID string
	Symbol   string
	// Quantity is signed: positive for buys, negative for sells.
	Quantity float64
	Price    float64
	Time     time.Time
	Fee      float64
	RuleName string
	Reason   types.Reason
}

// ApplyFill folds a fill into the position book and appends the immutable
// transaction record. Realized P&L is computed on the FIFO cost basis for
// any quantity that reduced an existing position.
func (b *BacktestState) ApplyFill(fill Fill) (types.Transaction, error) {
	position, exists := b.positions[fill.Symbol]
	if !exists {
		position = &types.Position{Symbol: fill.Symbol}
		b.positions[fill.Symbol] = position
	}

	realized := position.Apply(fill.Quantity, fill.Price, fill.Time)

	// Cash moves opposite the signed fill, plus the fee.
	notional := decimal.NewFromFloat(fill.Quantity).Mul(decimal.NewFromFloat(fill.Price))
	b.cash = b.cash.Sub(notional).Sub(decimal.NewFromFloat(fill.Fee))
	b.realizedPnL = b.realizedPnL.Add(decimal.NewFromFloat(realized))
	b.totalFees = b.totalFees.Add(decimal.NewFromFloat(fill.Fee))

	tx := types.Transaction{
		ID:          uuid.New().String(),
		Symbol:      fill.Symbol,
		Quantity:    fill.Quantity,
		Price:       fill.Price,
		Time:        fill.Time,
		Fee:         fill.Fee,
		RealizedPnL: realized,
		IntentID:    fill.IntentID,
		RuleName:    fill.RuleName,
		Reason:      fill.Reason,
	}

	insertQuery := b.sq.
		Insert("transactions").
		Columns("id", "symbol", "quantity", "price", "time", "fee", "realized_pnl", "intent_id", "rule_name", "reason", "message").
		Values(tx.ID, tx.Symbol, tx.Quantity, tx.Price, tx.Time, tx.Fee, tx.RealizedPnL, tx.IntentID, tx.RuleName, tx.Reason.Reason, tx.Reason.Message).
		RunWith(b.db)

	if _, err := insertQuery.Exec(); err != nil {
		return types.Transaction{}, errors.Wrap(errors.ErrCodeLedgerWrite, "failed to insert transaction", err)
	}

	return tx, nil
}

// GetPosition returns a copy of the current position for a symbol. A symbol
// with no transactions yields a flat position.
func (b *BacktestState) GetPosition(symbol string) types.Position {
	position, exists := b.positions[symbol]
	if !exists {
		return types.Position{Symbol: symbol}
	}

	copied := *position
	copied.Lots = append([]types.Lot(nil), position.Lots...)

	return copied
}

// AppendSnapshot recomputes unrealized P&L against the bar's closing price
// and appends one portfolio snapshot for the bar.
func (b *BacktestState) AppendSnapshot(bar types.Bar) (types.PortfolioSnapshot, error) {
	position := b.GetPosition(bar.Symbol)
	unrealized := position.UnrealizedPnL(bar.Close)

	// Fees are folded into the realized leg so the equity identity
	// equity = initial + realized + unrealized holds exactly.
	realizedNet, _ := b.realizedPnL.Sub(b.totalFees).Float64()
	cash, _ := b.cash.Float64()

	snapshot := types.PortfolioSnapshot{
		Time:             bar.Time,
		Symbol:           bar.Symbol,
		Equity:           b.initialEquity + realizedNet + unrealized,
		Cash:             cash,
		RealizedPnL:      realizedNet,
		UnrealizedPnL:    unrealized,
		PositionQuantity: position.Quantity,
		ClosePrice:       bar.Close,
	}

	insertQuery := b.sq.
		Insert("snapshots").
		Columns("time", "symbol", "equity", "cash", "realized_pnl", "unrealized_pnl", "position_quantity", "close_price").
		Values(snapshot.Time, snapshot.Symbol, snapshot.Equity, snapshot.Cash, snapshot.RealizedPnL, snapshot.UnrealizedPnL, snapshot.PositionQuantity, snapshot.ClosePrice).
		RunWith(b.db)

	if _, err := insertQuery.Exec(); err != nil {
		return types.PortfolioSnapshot{}, errors.Wrap(errors.ErrCodeLedgerWrite, "failed to insert snapshot", err)
	}

	return snapshot, nil
}

// GetAllTransactions returns every recorded transaction ordered by time.
func (b *BacktestState) GetAllTransactions() ([]types.Transaction, error) {
	selectQuery := b.sq.
		Select("id", "symbol", "quantity", "price", "time", "fee", "realized_pnl", "intent_id", "rule_name", "reason", "message").
		From("transactions").
		OrderBy("time ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query transactions", err)
	}
	defer rows.Close()

	var transactions []types.Transaction

	for rows.Next() {
		var tx types.Transaction

		err := rows.Scan(
			&tx.ID,
			&tx.Symbol,
			&tx.Quantity,
			&tx.Price,
			&tx.Time,
			&tx.Fee,
			&tx.RealizedPnL,
			&tx.IntentID,
			&tx.RuleName,
			&tx.Reason.Reason,
			&tx.Reason.Message,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan transaction", err)
		}

		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating transactions", err)
	}

	return transactions, nil
}

// GetSnapshots returns the per-bar snapshots ordered by time.
func (b *BacktestState) GetSnapshots() ([]types.PortfolioSnapshot, error) {
	selectQuery := b.sq.
		Select("time", "symbol", "equity", "cash", "realized_pnl", "unrealized_pnl", "position_quantity", "close_price").
		From("snapshots").
		OrderBy("time ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query snapshots", err)
	}
	defer rows.Close()

	var snapshots []types.PortfolioSnapshot

	for rows.Next() {
		var s types.PortfolioSnapshot

		err := rows.Scan(&s.Time, &s.Symbol, &s.Equity, &s.Cash, &s.RealizedPnL, &s.UnrealizedPnL, &s.PositionQuantity, &s.ClosePrice)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan snapshot", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating snapshots", err)
	}

	return snapshots, nil
}

// GetAccountState aggregates the run into the final account state.
func (b *BacktestState) GetAccountState(finalTime time.Time, markPrices map[string]float64) types.AccountState {
	realizedNet, _ := b.realizedPnL.Sub(b.totalFees).Float64()
	fees, _ := b.totalFees.Float64()

	unrealized := 0.0

	var open []types.Position

	for symbol, position := range b.positions {
		if position.Quantity == 0 {
			continue
		}

		open = append(open, b.GetPosition(symbol))

		if mark, ok := markPrices[symbol]; ok {
			unrealized += position.UnrealizedPnL(mark)
		}
	}

	return types.AccountState{
		InitialEquity: b.initialEquity,
		FinalEquity:   b.initialEquity + realizedNet + unrealized,
		RealizedPnL:   realizedNet,
		UnrealizedPnL: unrealized,
		TotalFees:     fees,
		FinalTime:     finalTime,
		OpenPositions: open,
	}
}

// GetStats computes per-symbol statistics for the run. Exit quality is
// judged on transactions that realized P&L.
func (b *BacktestState) GetStats(finalTime time.Time, markPrices map[string]float64) ([]types.RunStats, error) {
	query := `
		WITH exit_stats AS (
			SELECT
				symbol,
				COUNT(*) as total_transactions,
				SUM(CASE WHEN quantity < 0 AND realized_pnl > 0 THEN 1 ELSE 0 END) as winning_exits,
				SUM(CASE WHEN quantity < 0 AND realized_pnl < 0 THEN 1 ELSE 0 END) as losing_exits,
				MIN(realized_pnl) as min_pnl,
				SUM(fee) as total_fees
			FROM transactions
			GROUP BY symbol
		)
		SELECT
			symbol,
			total_transactions,
			winning_exits,
			losing_exits,
			CASE WHEN winning_exits + losing_exits > 0
				THEN CAST(winning_exits AS DOUBLE) / (winning_exits + losing_exits)
				ELSE 0 END as win_rate,
			CASE WHEN min_pnl < 0 THEN ABS(min_pnl) ELSE 0 END as max_exit_loss,
			total_fees
		FROM exit_stats
		ORDER BY symbol
	`

	rows, err := b.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query stats", err)
	}
	defer rows.Close()

	account := b.GetAccountState(finalTime, markPrices)

	var stats []types.RunStats

	for rows.Next() {
		var s types.RunStats

		err := rows.Scan(
			&s.Symbol,
			&s.TradeResult.NumberOfTransactions,
			&s.TradeResult.NumberOfWinningExits,
			&s.TradeResult.NumberOfLosingExits,
			&s.TradeResult.WinRate,
			&s.TradeResult.MaximumSingleExitLoss,
			&s.TotalFees,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan stats", err)
		}

		s.Account = account
		stats = append(stats, s)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating stats", err)
	}

	return stats, nil
}

// Write exports the ledger to Parquet files in the given directory.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWrite, "failed to create results directory", err)
	}

	// Using raw SQL as Squirrel doesn't support COPY.
	transactionsPath := filepath.Join(path, "transactions.parquet")
	if _, err := b.db.Exec(`COPY transactions TO '` + transactionsPath + `' (FORMAT PARQUET)`); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWrite, "failed to export transactions to Parquet", err)
	}

	snapshotsPath := filepath.Join(path, "snapshots.parquet")
	if _, err := b.db.Exec(`COPY snapshots TO '` + snapshotsPath + `' (FORMAT PARQUET)`); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWrite, "failed to export snapshots to Parquet", err)
	}

	b.logger.Info("Exported backtest results to Parquet files",
		zap.String("transactions", transactionsPath),
		zap.String("snapshots", snapshotsPath),
	)

	return nil
}

// Cleanup drops the ledger tables and resets the in-memory book.
func (b *BacktestState) Cleanup() error {
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS transactions;
		DROP TABLE IF EXISTS snapshots;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWrite, "failed to drop ledger tables", err)
	}

	return b.Initialize(b.initialEquity)
}

// Close releases the underlying database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
