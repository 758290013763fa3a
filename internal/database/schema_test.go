package database

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

func TestMigrate(t *testing.T) {
	t.Run("creates every table", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer mockDB.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_entries").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_ledger_entries_account").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS account_balances").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS deposit_bindings").WillReturnResult(sqlmock.NewResult(0, 0))

		err = Migrate(sqlx.NewDb(mockDB, "postgres"))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops on first failure", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer mockDB.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_entries").WillReturnError(errors.New("permission denied"))

		err = Migrate(sqlx.NewDb(mockDB, "postgres"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "migration step 0")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
