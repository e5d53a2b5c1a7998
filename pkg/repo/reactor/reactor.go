package reactor

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reactorImpl struct {
	*db.Datastore
}

func New() repo.ReactorRepo {
	return &reactorImpl{Datastore: db.DB()}
}

func NewWithStore(store *db.Datastore) repo.ReactorRepo {
	return &reactorImpl{Datastore: store}
}

func (r *reactorImpl) CreateReactor(ctx context.Context, data *model.Reactor) error {
	return r.DBWithContext(ctx).Create(data).Error
}

func (r *reactorImpl) RenameReactor(ctx context.Context, id int64, name string) error {
	res := r.DBWithContext(ctx).Model(&model.Reactor{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reactorImpl) GetReactorByID(ctx context.Context, id int64) (*model.Reactor, error) {
	data := &model.Reactor{}
	err := r.DBWithContext(ctx).Where("id = ?", id).First(data).Error
	return data, err
}

func (r *reactorImpl) GetReactorByUUID(ctx context.Context, id uuid.UUID) (*model.Reactor, error) {
	data := &model.Reactor{}
	err := r.DBWithContext(ctx).Where("uuid = ?", id).First(data).Error
	return data, err
}

func (r *reactorImpl) GetReactorByName(ctx context.Context, name string) (*model.Reactor, error) {
	data := &model.Reactor{}
	err := r.DBWithContext(ctx).Where("name = ?", name).First(data).Error
	return data, err
}

func (r *reactorImpl) ListReactors(ctx context.Context) ([]*model.Reactor, error) {
	var datas []*model.Reactor
	err := r.DBWithContext(ctx).Order("name ASC").Find(&datas).Error
	return datas, err
}

func (r *reactorImpl) CreateCycle(ctx context.Context, data *model.ReactorCycle) error {
	return r.DBWithContext(ctx).Create(data).Error
}

func (r *reactorImpl) UpdateCycle(ctx context.Context, data *model.ReactorCycle) error {
	res := r.DBWithContext(ctx).Unscoped().Model(&model.ReactorCycle{}).
		Where("id = ?", data.ID).
		Select("name", "target_start_date", "expiration_date", "is_enabled", "archived_status", "updated_at").
		Updates(data)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reactorImpl) DeleteCycle(ctx context.Context, id int64) error {
	res := r.DBWithContext(ctx).Where("id = ?", id).Delete(&model.ReactorCycle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reactorImpl) cycleQuery(ctx context.Context, includeArchived bool) *gorm.DB {
	query := r.DBWithContext(ctx)
	if includeArchived {
		return query.Unscoped()
	}
	return query.Where("archived_status = ?", model.ArchivedNone)
}

func (r *reactorImpl) GetCycleByID(ctx context.Context, id int64, includeArchived bool) (*model.ReactorCycle, error) {
	data := &model.ReactorCycle{}
	err := r.cycleQuery(ctx, includeArchived).Where("id = ?", id).First(data).Error
	return data, err
}

func (r *reactorImpl) GetCycleByUUID(ctx context.Context, id uuid.UUID, includeArchived bool) (*model.ReactorCycle, error) {
	data := &model.ReactorCycle{}
	err := r.cycleQuery(ctx, includeArchived).Where("uuid = ?", id).First(data).Error
	return data, err
}

func (r *reactorImpl) ListCycles(ctx context.Context, reactorID int64, includeArchived bool) ([]*model.ReactorCycle, error) {
	var datas []*model.ReactorCycle
	query := r.cycleQuery(ctx, includeArchived)
	if reactorID > 0 {
		query = query.Where("reactor_id = ?", reactorID)
	}
	err := query.Order("expiration_date ASC, id ASC").Find(&datas).Error
	return datas, err
}

func (r *reactorImpl) LockCycle(ctx context.Context, id int64) (*model.ReactorCycle, error) {
	data := &model.ReactorCycle{}
	err := r.DBWithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(data).Error
	return data, err
}

func (r *reactorImpl) DecrementMass(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	res := r.DBWithContext(ctx).Unscoped().Model(&model.ReactorCycle{}).
		Where("id = ? AND mass >= ?", id, amount).
		Update("mass", gorm.Expr("mass - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reactorImpl) IncrementMass(ctx context.Context, id int64, amount decimal.Decimal) error {
	res := r.DBWithContext(ctx).Unscoped().Model(&model.ReactorCycle{}).
		Where("id = ?", id).
		Update("mass", gorm.Expr("mass + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reactorImpl) ArchiveExpired(ctx context.Context, today time.Time) ([]int64, error) {
	var reactorIDs []int64
	err := r.ExecTx(ctx, func(txCtx context.Context) error {
		var expired []*model.ReactorCycle
		if err := r.DBWithContext(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("archived_status = ? AND expiration_date < ?", model.ArchivedNone, today).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(expired))
		seen := make(map[int64]struct{})
		for _, c := range expired {
			ids = append(ids, c.ID)
			if _, ok := seen[c.ReactorID]; !ok {
				seen[c.ReactorID] = struct{}{}
				reactorIDs = append(reactorIDs, c.ReactorID)
			}
		}
		return r.DBWithContext(txCtx).Model(&model.ReactorCycle{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"archived_status": model.ArchivedExpired,
				"is_enabled":      false,
			}).Error
	})
	return reactorIDs, err
}
