package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_scalper/internal/domain"
)

// SQLiteStore is the queryable trade journal.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trade_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			action TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			quantity REAL NOT NULL,
			leverage INTEGER NOT NULL,
			margin REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL DEFAULT 0,
			pnl REAL NOT NULL DEFAULT 0,
			pnl_pct REAL NOT NULL DEFAULT 0,
			market_data TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_symbol ON trade_events(symbol);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TradeRecorder Implementation

func (s *SQLiteStore) RecordTrade(ctx context.Context, ev *domain.TradeEvent) error {
	var snapshot sql.NullString
	if ev.Snapshot != nil {
		raw, err := json.Marshal(ev.Snapshot)
		if err != nil {
			return fmt.Errorf("encode market data: %w", err)
		}
		snapshot = sql.NullString{String: string(raw), Valid: true}
	}

	query := `INSERT INTO trade_events (id, action, symbol, side, reason, quantity, leverage, margin, entry_price, exit_price, pnl, pnl_pct, market_data, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.Action, ev.Symbol, ev.Side, ev.Reason, ev.Quantity, ev.Leverage, ev.Margin,
		ev.EntryPrice, ev.ExitPrice, ev.PnL, ev.PnLPct, snapshot, ev.Time.UTC())
	return err
}

// TradeRepository Implementation

const tradeColumns = `id, action, symbol, side, reason, quantity, leverage, margin, entry_price, exit_price, pnl, pnl_pct, market_data, created_at`

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.TradeEvent, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_events ORDER BY seq DESC LIMIT ?`
	return s.queryTrades(ctx, query, limit)
}

func (s *SQLiteStore) ListTradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.TradeEvent, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_events WHERE symbol = ? ORDER BY seq DESC LIMIT ?`
	return s.queryTrades(ctx, query, symbol, limit)
}

func (s *SQLiteStore) queryTrades(ctx context.Context, query string, args ...any) ([]*domain.TradeEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.TradeEvent
	for rows.Next() {
		var ev domain.TradeEvent
		var snapshot sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.Symbol, &ev.Side, &ev.Reason, &ev.Quantity, &ev.Leverage, &ev.Margin,
			&ev.EntryPrice, &ev.ExitPrice, &ev.PnL, &ev.PnLPct, &snapshot, &ev.Time); err != nil {
			return nil, err
		}
		if snapshot.Valid && snapshot.String != "" {
			var snap domain.MarketSnapshot
			if err := json.Unmarshal([]byte(snapshot.String), &snap); err != nil {
				return nil, fmt.Errorf("decode market data for trade %s: %w", ev.ID, err)
			}
			ev.Snapshot = &snap
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
