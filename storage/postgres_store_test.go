package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-pipeline/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStoreFromDB(db), mock
}

func samplePlan() []models.WriteOp {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	return []models.WriteOp{
		{Kind: models.OpUpsertProduct, Product: &models.ProductPerformance{
			StockCode: "P1", Description: "MUG", TotalQuantitySold: 5, TotalRevenue: 50,
			TransactionCount: 1, UniqueCustomers: 1, AvgUnitPrice: 10,
		}},
		{Kind: models.OpUpsertCustomer, Customer: &models.CustomerAnalysis{
			CustomerID: "C1", TotalTransactions: 1, TotalSpent: 50, AvgTransactionValue: 50,
			FirstPurchaseDate: day, LastPurchaseDate: day, FavoriteProduct: "P1",
			PrimaryCountry: "US", Segment: models.SegmentLow,
		}},
		{Kind: models.OpInsertSummary, Summary: &models.BatchSummary{
			RunID: "8d0c5c5e-6b8a-4a43-9b7e-2f0d3f1f4c11", RunKey: "batch:all", Window: "all",
			TotalTransactions: 1, UniqueCustomers: 1, UniqueProducts: 1, UniqueCountries: 1,
			TotalRevenue: 50, DataQualityScore: 100, RecordsSeen: 1,
			EarliestTransaction: day, LatestTransaction: day, CreatedAt: day,
		}},
	}
}

func TestPostgresApplyInOrder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_performance")).
		WithArgs("P1", "MUG", 5, 50.0, 1, 1, 10.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customer_analysis")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_summary")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := store.Apply(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserts)
	assert.Equal(t, 1, res.SummariesInserted)
	assert.Empty(t, res.DuplicateRunKeys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyReportsDuplicateSummary(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_performance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customer_analysis")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_summary")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := store.Apply(context.Background(), samplePlan())
	require.NoError(t, err)
	assert.Equal(t, 0, res.SummariesInserted)
	assert.Equal(t, []string{"batch:all"}, res.DuplicateRunKeys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyUsesUpserts(t *testing.T) {
	assert.Contains(t, upsertProductSQL, "ON CONFLICT (stock_code) DO UPDATE")
	assert.Contains(t, upsertCustomerSQL, "ON CONFLICT (customer_id) DO UPDATE")
	assert.Contains(t, insertSummarySQL, "ON CONFLICT (run_key) DO NOTHING")
	assert.Contains(t, insertSummarySQL, "$14,NOW())", "created_at is stamped by the database")
}

func TestPostgresApplyFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_performance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customer_analysis")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.Apply(context.Background(), samplePlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.Contains(t, err.Error(), "C1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyEmptyPlan(t *testing.T) {
	store, mock := newMockStore(t)
	_, err := store.Apply(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriteTransactions(t *testing.T) {
	store, mock := newMockStore(t)
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	txns := make([]*models.Transaction, 0, 60)
	for i := 0; i < 60; i++ {
		txns = append(txns, &models.Transaction{
			InvoiceNo: "536365", StockCode: "P1", Quantity: 1, InvoiceDate: day,
			UnitPrice: 1, CustomerID: "C1", Country: "US", TotalAmount: 1, Year: 2024, Month: 1,
		})
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM retail_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO retail_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 50))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO retail_transactions")).
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectCommit()

	require.NoError(t, store.WriteTransactions(context.Background(), txns))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFetchSummaries(t *testing.T) {
	store, mock := newMockStore(t)
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"run_id", "run_key", "window_key", "total_transactions", "unique_customers",
		"unique_products", "unique_countries", "total_revenue", "return_count",
		"data_quality_score", "records_seen", "records_rejected",
		"earliest_transaction", "latest_transaction", "created_at",
	}).AddRow("8d0c5c5e-6b8a-4a43-9b7e-2f0d3f1f4c11", "batch:all", "all", 3, 2, 2, 1,
		"123.45", 1, "66.67", 3, 1, day, nil, day)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_summary")).
		WithArgs(5).
		WillReturnRows(rows)

	got, err := store.FetchSummaries(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "batch:all", got[0].RunKey)
	assert.Equal(t, 123.45, got[0].TotalRevenue)
	assert.Equal(t, 66.67, got[0].DataQualityScore)
	assert.Equal(t, day, got[0].EarliestTransaction)
	assert.True(t, got[0].LatestTransaction.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
