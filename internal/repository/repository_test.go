package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

func sampleReceipt(id, merchant string, total float64) receipt.Receipt {
	r := receipt.Empty(id)
	r.Merchant.Name = merchant
	r.Transaction.Date = "2024-03-01"
	r.Transaction.Total = decimal.NewNullDecimal(decimal.NewFromFloat(total))
	r.Items = []receipt.Item{{
		Description: "Milk 2L",
		Quantity:    "1",
		LineTotal:   decimal.NewNullDecimal(decimal.RequireFromString("4.99")),
		TaxStatus:   constants.TaxStatusZeroRated,
	}}
	return r
}

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestSaveAndListSQLite(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	repo := NewReceiptRepository(db, nil)

	ids, err := repo.SaveBatch(ctx, "batch-1", []receipt.Receipt{
		sampleReceipt("a.jpg", "Walmart", 12.5),
		sampleReceipt("a.jpg", "Costco", 40),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	_, err = repo.SaveBatch(ctx, "batch-2", []receipt.Receipt{sampleReceipt("b.jpg", "Loblaws", 3)})
	require.NoError(t, err)

	got, err := repo.List(ctx, Filter{BatchID: "batch-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Walmart", got[0].Receipt.Merchant.Name)
	assert.Equal(t, "Costco", got[1].Receipt.Merchant.Name)
	assert.Equal(t, "a.jpg", got[1].Receipt.ImageID)
	assert.True(t, got[0].Receipt.Transaction.Total.Decimal.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, constants.TaxStatusZeroRated, got[0].Receipt.Items[0].TaxStatus)

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := repo.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	var category string
	require.NoError(t, db.SQL.QueryRowContext(ctx,
		`SELECT category FROM receipt_items WHERE receipt_id = ?`, ids[0]).Scan(&category))
	assert.Equal(t, string(constants.Groceries), category)
}

func TestListFiltersByCategory(t *testing.T) {
	ctx := context.Background()
	repo := NewReceiptRepository(openMemory(t), nil)

	dinner := sampleReceipt("dinner.jpg", "Bistro", 30)
	dinner.Items[0].Description = "Restaurant Tip"
	_, err := repo.SaveBatch(ctx, "batch-1", []receipt.Receipt{
		sampleReceipt("milk.jpg", "Walmart", 4.99),
		dinner,
	})
	require.NoError(t, err)

	got, err := repo.List(ctx, Filter{Category: constants.Dining})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dinner.jpg", got[0].Receipt.ImageID)

	got, err = repo.List(ctx, Filter{BatchID: "batch-1", Category: constants.Groceries})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "milk.jpg", got[0].Receipt.ImageID)

	got, err = repo.List(ctx, Filter{Category: constants.Gifts})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveBatchRequiresBatchID(t *testing.T) {
	repo := NewReceiptRepository(openMemory(t), nil)
	_, err := repo.SaveBatch(context.Background(), "", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, common.ErrNotConfigured)
}

func TestSaveBatchRollsBackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO receipts").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewReceiptRepository(NewDB(sqlDB, DialectSQLite, nil), nil)
	_, err = repo.SaveBatch(context.Background(), "batch-1", []receipt.Receipt{sampleReceipt("a.jpg", "Walmart", 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchPostgresPlaceholders(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO receipt_items .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`).
		WithArgs(sqlmock.AnyArg(), 0, "Milk 2L", "Groceries", "1", sqlmock.AnyArg(), "ZERO_RATED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewReceiptRepository(NewDB(sqlDB, DialectPostgres, nil), nil)
	ids, err := repo.SaveBatch(context.Background(), "batch-1", []receipt.Receipt{sampleReceipt("a.jpg", "Walmart", 1)})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	db := NewDB(sqlDB, DialectPostgres, nil)
	mock.ExpectPing()
	assert.NoError(t, db.HealthCheck(context.Background(), 0))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.ErrorIs(t, db.HealthCheck(context.Background(), 0), common.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	lite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
	assert.True(t, IsPostgresDSN("postgresql://u@h/db"))
	assert.False(t, IsPostgresDSN("receipts.db"))
}
