package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"retail-pipeline/models"
)

const (
	upsertProductSQL = `
		INSERT INTO product_performance
			(stock_code, description, total_quantity_sold, total_revenue,
			 transaction_count, unique_customers, avg_unit_price, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (stock_code) DO UPDATE SET
			description         = EXCLUDED.description,
			total_quantity_sold = EXCLUDED.total_quantity_sold,
			total_revenue       = EXCLUDED.total_revenue,
			transaction_count   = EXCLUDED.transaction_count,
			unique_customers    = EXCLUDED.unique_customers,
			avg_unit_price      = EXCLUDED.avg_unit_price,
			updated_at          = NOW()`

	upsertCustomerSQL = `
		INSERT INTO customer_analysis
			(customer_id, total_transactions, total_spent, avg_transaction_value,
			 first_purchase_date, last_purchase_date, favorite_product,
			 primary_country, customer_lifetime_days, customer_segment, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (customer_id) DO UPDATE SET
			total_transactions     = EXCLUDED.total_transactions,
			total_spent            = EXCLUDED.total_spent,
			avg_transaction_value  = EXCLUDED.avg_transaction_value,
			first_purchase_date    = EXCLUDED.first_purchase_date,
			last_purchase_date     = EXCLUDED.last_purchase_date,
			favorite_product       = EXCLUDED.favorite_product,
			primary_country        = EXCLUDED.primary_country,
			customer_lifetime_days = EXCLUDED.customer_lifetime_days,
			customer_segment       = EXCLUDED.customer_segment,
			updated_at             = NOW()`

	// The run key is unique, so a retried run does not append a second row.
	insertSummarySQL = `
		INSERT INTO batch_summary
			(run_id, run_key, window_key, total_transactions, unique_customers,
			 unique_products, unique_countries, total_revenue, return_count,
			 data_quality_score, records_seen, records_rejected,
			 earliest_transaction, latest_transaction, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
		ON CONFLICT (run_key) DO NOTHING`
)

var (
	_ Store                = (*PostgresStore)(nil)
	_ TransactionLogWriter = (*PostgresStore)(nil)
	_ SummaryHistory       = (*PostgresStore)(nil)
)

// PostgresStore materializes write plans and the canonical log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := NewPostgresStoreFromDB(db)
	if err := ps.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

// NewPostgresStoreFromDB wraps an already-open handle without migrating.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS retail_transactions (
			id           SERIAL PRIMARY KEY,
			invoice_no   VARCHAR(20)   NOT NULL,
			stock_code   VARCHAR(20)   NOT NULL,
			description  TEXT          NOT NULL DEFAULT '',
			quantity     INTEGER       NOT NULL,
			invoice_date TIMESTAMPTZ   NOT NULL,
			unit_price   NUMERIC(10,2) NOT NULL,
			customer_id  VARCHAR(20)   NOT NULL,
			country      VARCHAR(100)  NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL,
			is_return    BOOLEAN       NOT NULL,
			year         INTEGER       NOT NULL,
			month        INTEGER       NOT NULL
		);

		CREATE TABLE IF NOT EXISTS batch_summary (
			id                   SERIAL PRIMARY KEY,
			run_id               UUID          NOT NULL,
			run_key              TEXT          UNIQUE NOT NULL,
			window_key           TEXT          NOT NULL,
			total_transactions   INTEGER       NOT NULL,
			unique_customers     INTEGER       NOT NULL,
			unique_products      INTEGER       NOT NULL,
			unique_countries     INTEGER       NOT NULL,
			total_revenue        NUMERIC(14,2) NOT NULL,
			return_count         INTEGER       NOT NULL,
			data_quality_score   NUMERIC(5,2)  NOT NULL,
			records_seen         INTEGER       NOT NULL,
			records_rejected     INTEGER       NOT NULL,
			earliest_transaction TIMESTAMPTZ,
			latest_transaction   TIMESTAMPTZ,
			created_at           TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS product_performance (
			stock_code          VARCHAR(20)   PRIMARY KEY,
			description         TEXT          NOT NULL DEFAULT '',
			total_quantity_sold INTEGER       NOT NULL,
			total_revenue       NUMERIC(14,2) NOT NULL,
			transaction_count   INTEGER       NOT NULL,
			unique_customers    INTEGER       NOT NULL,
			avg_unit_price      NUMERIC(10,2) NOT NULL,
			updated_at          TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS customer_analysis (
			customer_id            VARCHAR(20)   PRIMARY KEY,
			total_transactions     INTEGER       NOT NULL,
			total_spent            NUMERIC(14,2) NOT NULL,
			avg_transaction_value  NUMERIC(12,2) NOT NULL,
			first_purchase_date    TIMESTAMPTZ   NOT NULL,
			last_purchase_date     TIMESTAMPTZ   NOT NULL,
			favorite_product       VARCHAR(20)   NOT NULL,
			primary_country        VARCHAR(100)  NOT NULL,
			customer_lifetime_days INTEGER       NOT NULL,
			customer_segment       VARCHAR(20)   NOT NULL,
			updated_at             TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_stock_code ON retail_transactions(stock_code);
		CREATE INDEX IF NOT EXISTS idx_transactions_customer   ON retail_transactions(customer_id);
		CREATE INDEX IF NOT EXISTS idx_transactions_period     ON retail_transactions(year, month);
		CREATE INDEX IF NOT EXISTS idx_customer_segment        ON customer_analysis(customer_segment);
	`)
	return err
}

// Apply executes ops in order inside one transaction. Any failure rolls the
// transaction back and is reported as ErrStoreWrite.
func (ps *PostgresStore) Apply(ctx context.Context, ops []models.WriteOp) (ApplyResult, error) {
	var res ApplyResult
	if len(ops) == 0 {
		return res, nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: postgres: begin: %v", ErrStoreWrite, err)
	}

	for i, op := range ops {
		affected, err := applyOp(ctx, tx, op)
		if err != nil {
			_ = tx.Rollback()
			return ApplyResult{}, fmt.Errorf("%w: postgres: op %d (%s %s): %v", ErrStoreWrite, i, op.Kind, op.Key(), err)
		}
		switch {
		case op.Kind != models.OpInsertSummary:
			res.Upserts++
		case affected == 0:
			res.DuplicateRunKeys = append(res.DuplicateRunKeys, op.Summary.RunKey)
		default:
			res.SummariesInserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return ApplyResult{}, fmt.Errorf("%w: postgres: commit: %v", ErrStoreWrite, err)
	}
	return res, nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op models.WriteOp) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	switch op.Kind {
	case models.OpUpsertProduct:
		p := op.Product
		result, err = tx.ExecContext(ctx, upsertProductSQL,
			p.StockCode, p.Description, p.TotalQuantitySold, p.TotalRevenue,
			p.TransactionCount, p.UniqueCustomers, p.AvgUnitPrice)
	case models.OpUpsertCustomer:
		c := op.Customer
		result, err = tx.ExecContext(ctx, upsertCustomerSQL,
			c.CustomerID, c.TotalTransactions, c.TotalSpent, c.AvgTransactionValue,
			c.FirstPurchaseDate, c.LastPurchaseDate, c.FavoriteProduct,
			c.PrimaryCountry, c.CustomerLifetimeDays, string(c.Segment))
	case models.OpInsertSummary:
		s := op.Summary
		result, err = tx.ExecContext(ctx, insertSummarySQL,
			s.RunID, s.RunKey, s.Window, s.TotalTransactions, s.UniqueCustomers,
			s.UniqueProducts, s.UniqueCountries, s.TotalRevenue, s.ReturnCount,
			s.DataQualityScore, s.RecordsSeen, s.RecordsRejected,
			nullTime(s.EarliestTransaction), nullTime(s.LatestTransaction))
	default:
		return 0, fmt.Errorf("unknown op kind %d", op.Kind)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// WriteTransactions replaces the canonical transaction log with txns.
func (ps *PostgresStore) WriteTransactions(ctx context.Context, txns []*models.Transaction) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM retail_transactions"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("postgres: clear transactions: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(txns); i += batchSize {
		end := i + batchSize
		if end > len(txns) {
			end = len(txns)
		}
		if err := insertTransactionBatch(ctx, tx, txns[i:end]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres: insert transactions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

const transactionColumns = 12

func insertTransactionBatch(ctx context.Context, tx *sql.Tx, batch []*models.Transaction) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*transactionColumns)

	for idx, t := range batch {
		base := idx * transactionColumns
		placeholders := make([]string, transactionColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			t.InvoiceNo, t.StockCode, t.Description, t.Quantity, t.InvoiceDate, t.UnitPrice,
			t.CustomerID, t.Country, t.TotalAmount, t.IsReturn, t.Year, t.Month)
	}

	query := fmt.Sprintf(`
		INSERT INTO retail_transactions
			(invoice_no, stock_code, description, quantity, invoice_date, unit_price,
			 customer_id, country, total_amount, is_return, year, month)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// FetchSummaries returns the summary history, newest first.
func (ps *PostgresStore) FetchSummaries(ctx context.Context, limit int) ([]*models.BatchSummary, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT run_id, run_key, window_key, total_transactions, unique_customers,
		       unique_products, unique_countries, total_revenue, return_count,
		       data_quality_score, records_seen, records_rejected,
		       earliest_transaction, latest_transaction, created_at
		FROM batch_summary
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.BatchSummary
	for rows.Next() {
		s := &models.BatchSummary{}
		var earliest, latest sql.NullTime
		if err := rows.Scan(
			&s.RunID, &s.RunKey, &s.Window, &s.TotalTransactions, &s.UniqueCustomers,
			&s.UniqueProducts, &s.UniqueCountries, &s.TotalRevenue, &s.ReturnCount,
			&s.DataQualityScore, &s.RecordsSeen, &s.RecordsRejected,
			&earliest, &latest, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan summary: %w", err)
		}
		s.EarliestTransaction = earliest.Time
		s.LatestTransaction = latest.Time
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
