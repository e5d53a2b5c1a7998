package order

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (repo.OrderRepo, *db.Datastore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ins, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	store := db.NewDatastore(ins)
	return NewWithStore(store), store, mock
}

func TestLockOrderSelectsForUpdate(t *testing.T) {
	r, store, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT \* FROM "orders" WHERE id = \$1 ORDER BY "orders"\."id" LIMIT \S+ FOR UPDATE$`).
		WithArgs(int64(11), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(11, "pending"))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(txCtx context.Context) error {
		o, err := r.LockOrder(txCtx, 11)
		if err != nil {
			return err
		}
		assert.Equal(t, model.OrderPending, o.Status)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusComparesAndSwaps(t *testing.T) {
	r, _, mock := newMockRepo(t)
	update := `^UPDATE "orders" SET .*"status"=\$\d+.* WHERE \(?id = \$\d+ AND status = \$\d+\)?$`
	now := time.Date(2024, 6, 5, 9, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	data := &model.Order{Status: model.OrderConfirmed, ConfirmedAt: &now}
	data.ID = 11
	ok, err := r.UpdateOrderStatus(context.Background(), data, model.OrderPending)
	require.NoError(t, err)
	assert.True(t, ok)

	// another writer moved the order first
	mock.ExpectBegin()
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err = r.UpdateOrderStatus(context.Background(), data, model.OrderPending)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
