package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/multierr"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	createClosesTable = `CREATE TABLE IF NOT EXISTS closes (symbol VARCHAR NOT NULL, ts TIMESTAMP NOT NULL, close DOUBLE NOT NULL)`
	insertClose       = `INSERT INTO closes (symbol, ts, close) VALUES (?, ?, ?)`

	// Last close per bucket, newest count buckets, returned oldest first.
	selectBuckets = `
SELECT bucket, close FROM (
	SELECT time_bucket(to_microseconds(?), ts) AS bucket, arg_max(close, ts) AS close
	FROM closes
	WHERE symbol = ?
	GROUP BY bucket
	ORDER BY bucket DESC
	LIMIT ?
) ORDER BY bucket ASC`
)

// Reader serves close history out of a DuckDB database holding a single
// closes(symbol, ts, close) table.
type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open duckdb %q: %w", r.dataSourceName, err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

func (r *Reader) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createClosesTable); err != nil {
		return fmt.Errorf("unable to create closes table: %w", err)
	}
	return nil
}

func (r *Reader) Write(ctx context.Context, closes ...common.Close) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertClose)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer func() { err = multierr.Append(err, stmt.Close()) }()

	for _, c := range closes {
		price, ok := c.Price.Float64()
		if !ok {
			return fmt.Errorf("close %s of %s is not representable as double", c.Price, c.Symbol)
		}
		if _, err = stmt.ExecContext(ctx, c.Symbol, c.TimeStamp.UTC(), price); err != nil {
			return fmt.Errorf("error inserting close of %s: %w", c.Symbol, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit closes: %w", err)
	}
	return nil
}

// FetchHistory returns the last count closes of every symbol at the given
// frequency. Symbols without any rows are reported as unavailable.
func (r *Reader) FetchHistory(ctx context.Context, symbols []string, count int, frequency time.Duration) (pairs.History, error) {
	if frequency < time.Microsecond {
		return nil, fmt.Errorf("frequency %s is below the timestamp resolution", frequency)
	}

	var err error
	history := make(pairs.History, len(symbols))
	for _, symbol := range symbols {
		series, loadErr := r.loadCloses(ctx, symbol, count, frequency)
		if loadErr != nil {
			return nil, loadErr
		}
		if len(series) == 0 {
			err = multierr.Append(err, fmt.Errorf("no closes stored for %s: %w", symbol, pairs.ErrDataUnavailable))
			continue
		}
		history[symbol] = series
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (r *Reader) loadCloses(ctx context.Context, symbol string, count int, frequency time.Duration) (series []common.Close, err error) {
	rows, err := r.db.QueryContext(ctx, selectBuckets, frequency.Microseconds(), symbol, count)
	if err != nil {
		return nil, fmt.Errorf("error querying closes of %s: %w", symbol, err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	for rows.Next() {
		var (
			timeStamp time.Time
			price     float64
		)
		if err := rows.Scan(&timeStamp, &price); err != nil {
			return nil, fmt.Errorf("error scanning close of %s: %w", symbol, err)
		}
		series = append(series, common.Close{
			Symbol:    symbol,
			TimeStamp: timeStamp.UTC(),
			Price:     fixed.FromFloat64(price),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning closes of %s: %w", symbol, err)
	}
	return series, nil
}
