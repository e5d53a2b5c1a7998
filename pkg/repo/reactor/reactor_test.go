package reactor

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (repo.ReactorRepo, *db.Datastore, sqlmock.Sqlmock) {
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

func cycleRows(id int64, mass string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "reactor_id", "name", "mass", "is_enabled", "archived_status"}).
		AddRow(id, 1, "C1", mass, true, "")
}

func TestLockCycleSelectsForUpdate(t *testing.T) {
	r, store, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT \* FROM "reactor_cycles" WHERE id = \$1 ORDER BY "reactor_cycles"\."id" LIMIT \S+ FOR UPDATE$`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnRows(cycleRows(7, "50"))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(txCtx context.Context) error {
		c, err := r.LockCycle(txCtx, 7)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(7), c.ID)
		assert.True(t, c.Mass.Equal(decimal.NewFromInt(50)))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementMassIsGuarded(t *testing.T) {
	r, _, mock := newMockRepo(t)
	update := `^UPDATE "reactor_cycles" SET "mass"=mass - \$1,"updated_at"=\$2 WHERE \(?id = \$3 AND mass >= \$4\)?$`

	mock.ExpectBegin()
	mock.ExpectExec(update).
		WithArgs("10", sqlmock.AnyArg(), int64(7), "10").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := r.DecrementMass(context.Background(), 7, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, ok)

	// the guard filtered the row out, nothing was taken
	mock.ExpectBegin()
	mock.ExpectExec(update).
		WithArgs("60", sqlmock.AnyArg(), int64(7), "60").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err = r.DecrementMass(context.Background(), 7, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementMassMissingCycle(t *testing.T) {
	r, _, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^UPDATE "reactor_cycles" SET "mass"=mass \+ \$1,"updated_at"=\$2 WHERE id = \$3$`).
		WithArgs("5", sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := r.IncrementMass(context.Background(), 9, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCycleQueryArchivedScope(t *testing.T) {
	r, _, mock := newMockRepo(t)

	mock.ExpectQuery(`^SELECT \* FROM "reactor_cycles" WHERE archived_status = \$1 AND id = \$2 AND "reactor_cycles"\."deleted_at" IS NULL ORDER BY`).
		WithArgs("", int64(3), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := r.GetCycleByID(context.Background(), 3, false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// archived and soft deleted rows stay reachable for history
	mock.ExpectQuery(`^SELECT \* FROM "reactor_cycles" WHERE id = \$1 ORDER BY`).
		WithArgs(int64(3), sqlmock.AnyArg()).
		WillReturnRows(cycleRows(3, "0"))
	c, err := r.GetCycleByID(context.Background(), 3, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reactor_cycles" WHERE archived_status = $1 AND reactor_id = $2 AND "reactor_cycles"."deleted_at" IS NULL ORDER BY expiration_date ASC, id ASC`)).
		WithArgs("", int64(1)).
		WillReturnRows(cycleRows(4, "20").AddRow(5, 1, "C2", "30", true, ""))
	cycles, err := r.ListCycles(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Len(t, cycles, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveExpiredSkipsLockedRows(t *testing.T) {
	r, _, mock := newMockRepo(t)
	today := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`^SELECT \* FROM "reactor_cycles" WHERE \(?archived_status = \$1 AND expiration_date < \$2\)? AND "reactor_cycles"\."deleted_at" IS NULL FOR UPDATE SKIP LOCKED$`).
		WithArgs("", today).
		WillReturnRows(cycleRows(4, "20").AddRow(5, 2, "C2", "30", true, ""))
	mock.ExpectExec(`^UPDATE "reactor_cycles" SET "archived_status"=\$1,"is_enabled"=\$2,"updated_at"=\$3 WHERE id IN \(\$4,\$5\) AND "reactor_cycles"\."deleted_at" IS NULL$`).
		WithArgs("Expired", false, sqlmock.AnyArg(), int64(4), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ids, err := r.ArchiveExpired(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
