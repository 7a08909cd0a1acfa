package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	deleteSymbolPricesSQL = `DELETE FROM crypto_prices WHERE symbol = $1;`

	insertPriceSQL = `INSERT INTO crypto_prices (symbol, price, ts) VALUES ($1, $2, $3);`

	listBySymbolSQL = `SELECT symbol, price, ts
    FROM crypto_prices
    WHERE symbol = $1
    ORDER BY ts;`

	listBetweenSQL = `SELECT symbol, price, ts
    FROM crypto_prices
    WHERE ts >= $1
      AND ts < $2
    ORDER BY ts;`

	listSymbolsSQL = `SELECT symbol
    FROM crypto_prices
    GROUP BY symbol
    ORDER BY MIN(ts), symbol;`

	listRecentSQL = `SELECT symbol, price, ts
    FROM crypto_prices
    ORDER BY ts DESC
    LIMIT $1;`

	countPricesSQL = `SELECT COUNT(*) FROM crypto_prices;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PricePointStore defines the query contract the analytics layer depends on.
type PricePointStore interface {
	ReplaceSymbolPrices(ctx context.Context, symbol string, points []PricePoint) (int64, error)
	ListBySymbol(ctx context.Context, symbol string) ([]PricePoint, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]PricePoint, error)
	ListSymbols(ctx context.Context) ([]string, error)
	ListRecent(ctx context.Context, limit int) ([]PricePoint, error)
	CountPoints(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides PostgreSQL-backed access to price observations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// ReplaceSymbolPrices atomically swaps a symbol's history for the given
// points. Existing rows for the symbol are deleted and the new rows are
// inserted as one batch inside the same transaction.
func (s *Store) ReplaceSymbolPrices(ctx context.Context, symbol string, points []PricePoint) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteSymbolPricesSQL, symbol); err != nil {
		return 0, fmt.Errorf("delete existing prices: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(insertPriceSQL, p.Symbol, p.Price.String(), p.Timestamp)
	}

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for range points {
		tag, execErr := results.Exec()
		if execErr != nil {
			results.Close()
			return 0, fmt.Errorf("insert price point: %w", execErr)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace tx: %w", err)
	}
	return inserted, nil
}

// ListBySymbol returns a symbol's full history in ascending timestamp order.
func (s *Store) ListBySymbol(ctx context.Context, symbol string) ([]PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listBySymbolSQL, symbol)
	if queryErr != nil {
		return nil, fmt.Errorf("list prices by symbol: %w", queryErr)
	}
	defer rows.Close()

	return collectPricePoints(rows, 0)
}

// ListBetween returns all observations within the half-open window [from, to).
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list prices between: %w", queryErr)
	}
	defer rows.Close()

	return collectPricePoints(rows, 0)
}

// ListSymbols returns every known symbol in discovery order: ordered by the
// timestamp of the symbol's first observation, then alphabetically. Rankings
// built on this order are reproducible across calls.
func (s *Store) ListSymbols(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSymbolsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list symbols: %w", queryErr)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return symbols, nil
}

// ListRecent returns the most recent observations ordered newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent prices: %w", queryErr)
	}
	defer rows.Close()

	return collectPricePoints(rows, limit)
}

// CountPoints counts stored observations.
func (s *Store) CountPoints(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPricesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count prices: %w", scanErr)
	}
	return count, nil
}

func collectPricePoints(rows pgx.Rows, sizeHint int) ([]PricePoint, error) {
	points := make([]PricePoint, 0, sizeHint)
	for rows.Next() {
		point, scanErr := scanPricePoint(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		points = append(points, point)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

func scanPricePoint(rows pgx.Rows) (PricePoint, error) {
	var (
		symbol   string
		priceStr string
		ts       time.Time
	)

	if err := rows.Scan(&symbol, &priceStr, &ts); err != nil {
		return PricePoint{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PricePoint{}, fmt.Errorf("parse price: %w", err)
	}

	return PricePoint{Symbol: symbol, Price: price, Timestamp: ts}, nil
}
