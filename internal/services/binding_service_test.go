package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elentis/reconcile/internal/models"
)

func TestBindingStore(t *testing.T) {
	ctx := context.Background()
	columns := []string{"account_id", "rail", "reference_id", "address", "memo", "created_at"}

	t.Run("find miss", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("FROM deposit_bindings").
			WithArgs("acct1", "asset").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := NewBindingStore(db).Find(ctx, "acct1", models.RailAsset)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("save returns the persisted row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`ON CONFLICT \(account_id, rail\) DO UPDATE`).
			WithArgs("acct1", "asset", "acct1-ref", "TNew", "").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("acct1", "asset", "acct1-ref", "TExisting", "", time.Now()))

		stored, err := NewBindingStore(db).Save(ctx, &models.DepositBinding{
			AccountID: "acct1", Rail: models.RailAsset, ReferenceID: "acct1-ref", Address: "TNew",
		})
		require.NoError(t, err)
		assert.Equal(t, "TExisting", stored.Address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
