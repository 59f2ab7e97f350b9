package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyfarm/backend/internal/models"
)

// RunRepo keeps a history of finished aggregation runs so balance and
// volume trends survive past a single CSV overwrite.
type RunRepo struct {
	pool *pgxpool.Pool
}

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// EnsureSchema creates the history tables when they do not exist yet.
func (r *RunRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stats_run (
			id BIGSERIAL PRIMARY KEY,
			ran_at TIMESTAMPTZ NOT NULL,
			accounts INT NOT NULL,
			registered INT NOT NULL,
			total_balance TEXT NOT NULL,
			total_volume DOUBLE PRECISION NOT NULL,
			total_pnl DOUBLE PRECISION NOT NULL,
			total_trades BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS stats_row (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES stats_run(id) ON DELETE CASCADE,
			address TEXT NOT NULL,
			balance TEXT NOT NULL,
			open_positions_count INT NOT NULL,
			open_positions_value DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			trade_count BIGINT NOT NULL,
			is_registered BOOLEAN NOT NULL,
			last_activity TEXT NOT NULL
		);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Record stores one run and its rows atomically and returns the run id.
func (r *RunRepo) Record(ctx context.Context, summary models.RunSummary, rows []models.StatsRow) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO stats_run
		 (ran_at, accounts, registered, total_balance, total_volume, total_pnl, total_trades)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		summary.RanAt, summary.Accounts, summary.Registered,
		summary.TotalBalance, summary.TotalVolume, summary.TotalPnL, int64(summary.TotalTrades),
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, row := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO stats_row
			 (run_id, address, balance, open_positions_count, open_positions_value,
			  volume, pnl, trade_count, is_registered, last_activity)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			runID, row.Address, row.Balance, row.OpenPositionsCount, row.OpenPositionsValue,
			row.Volume, row.PnL, int64(row.TradeCount), row.IsRegistered, row.LastActivity,
		); err != nil {
			return 0, fmt.Errorf("insert row for %s: %w", row.Address, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// Recent returns the newest run summaries, latest first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]models.RunSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ran_at, accounts, registered, total_balance, total_volume, total_pnl, total_trades
		 FROM stats_run ORDER BY ran_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// RowHistory returns the stored rows for one address, latest run first.
func (r *RunRepo) RowHistory(ctx context.Context, address string, limit int) ([]models.StatsRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT address, balance, open_positions_count, open_positions_value,
		        volume, pnl, trade_count, is_registered, last_activity
		 FROM stats_row WHERE address = $1 ORDER BY run_id DESC LIMIT $2`,
		address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatsRow
	for rows.Next() {
		var s models.StatsRow
		var trades int64
		if err := rows.Scan(
			&s.Address, &s.Balance, &s.OpenPositionsCount, &s.OpenPositionsValue,
			&s.Volume, &s.PnL, &trades, &s.IsRegistered, &s.LastActivity,
		); err != nil {
			return nil, err
		}
		s.TradeCount = uint64(trades)
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- scan helpers ---

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectRuns(rows rowsIter) ([]models.RunSummary, error) {
	var out []models.RunSummary
	for rows.Next() {
		var s models.RunSummary
		var trades int64
		if err := rows.Scan(
			&s.ID, &s.RanAt, &s.Accounts, &s.Registered,
			&s.TotalBalance, &s.TotalVolume, &s.TotalPnL, &trades,
		); err != nil {
			return nil, err
		}
		s.TotalTrades = uint64(trades)
		out = append(out, s)
	}
	return out, rows.Err()
}
