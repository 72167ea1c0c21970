package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormLedgerStore_FindRecordsByPropertyOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormLedgerStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "payments" WHERE id IN (SELECT payment_id FROM "payment_properties" WHERE type_id = $1 AND value = $2) ORDER BY id ASC`)).
		WithArgs(int(domain.PropertyTransactionID), "TX42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "state", "currency", "amount"}).
			AddRow(3, "credit", int(domain.StateApproved), "EUR", "10.00").
			AddRow(5, "credit", int(domain.StateCaptured), "EUR", "10.00"))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "payment_properties" WHERE "payment_properties"."payment_id" IN ($1,$2) ORDER BY id ASC`)).
		WithArgs(3, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "type_id", "value"}).
			AddRow(10, 3, int(domain.PropertyTransactionID), "TX42").
			AddRow(11, 5, int(domain.PropertyTransactionID), "TX42").
			AddRow(12, 5, int(domain.PropertyExternalTransactionStatus), "000.000.000"))

	records, err := store.FindRecordsByProperty(context.Background(), domain.PropertyTransactionID, "TX42")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, uint(3), records[0].ID)
	assert.Equal(t, domain.StateApproved, records[0].State)
	assert.Equal(t, uint(5), records[1].ID)
	assert.Equal(t, domain.StateCaptured, records[1].State)
	assert.Equal(t, "TX42", records[1].TransactionID())
	code, ok := records[1].PropertyValue(domain.PropertyExternalTransactionStatus)
	assert.True(t, ok)
	assert.Equal(t, "000.000.000", code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLedgerStore_FindRecordsByPropertyError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormLedgerStore(db)

	mock.ExpectQuery(`SELECT \* FROM "payments"`).WillReturnError(errors.New("connection reset"))

	_, err := store.FindRecordsByProperty(context.Background(), domain.PropertyTransactionID, "TX42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLedgerStore_UpdatePropertyValue(t *testing.T) {
	tests := []struct {
		name       string
		updated    int64
		wantInsert bool
	}{
		{name: "existing property", updated: 1},
		{name: "missing property is created", updated: 0, wantInsert: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewGormLedgerStore(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(
				`UPDATE "payment_properties" SET "value"=$1 WHERE payment_id = $2 AND type_id = $3`)).
				WithArgs("800.100.152", 4, int(domain.PropertyExternalTransactionStatus)).
				WillReturnResult(sqlmock.NewResult(0, tt.updated))
			if tt.wantInsert {
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payment_properties" ("payment_id","type_id","value") VALUES ($1,$2,$3) RETURNING "id"`)).
					WithArgs(4, int(domain.PropertyExternalTransactionStatus), "800.100.152").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
			}
			mock.ExpectCommit()

			err := store.UpdatePropertyValue(context.Background(), 4, domain.PropertyExternalTransactionStatus, "800.100.152")
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormLedgerStore_UpdatePropertyValueRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormLedgerStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payment_properties"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "payment_properties"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.UpdatePropertyValue(context.Background(), 4, domain.PropertyExternalTransactionStatus, "800.100.152")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create payment property")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLedgerStore_FindOrderIDByRecordNotLinked(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormLedgerStore(db)

	mock.ExpectQuery(`SELECT \* FROM "order_payment_relations" WHERE payment_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "payment_id"}))

	_, err := store.FindOrderIDByRecord(context.Background(), 4)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCountryLookup_IgnoresCase(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		kind   domain.ISOCodeKind
		column string
		want   string
	}{
		{name: "alpha-2 lower case", code: "de", kind: domain.ISO2, column: "iso_code2", want: "DE"},
		{name: "alpha-3 padded", code: " deu ", kind: domain.ISO3, column: "iso_code3", want: "DEU"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			lookup := NewGormCountryLookup(db)

			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "countries" WHERE UPPER(`+tt.column+`) = $1`)).
				WithArgs(tt.want, 1).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "iso_code2", "iso_code3"}).
					AddRow(1, "Germany", "DE", "DEU"))

			c, err := lookup.FindCountryByISOCode(context.Background(), tt.code, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, "Germany", c.Name)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormCountryLookup_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	lookup := NewGormCountryLookup(db)

	mock.ExpectQuery(`SELECT \* FROM "countries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "iso_code2", "iso_code3"}))

	_, err := lookup.FindCountryByISOCode(context.Background(), "xx", domain.ISO2)
	assert.ErrorIs(t, err, domain.ErrCountryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
