package order

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderImpl struct {
	*db.Datastore
}

func New() repo.OrderRepo {
	return &orderImpl{Datastore: db.DB()}
}

func NewWithStore(store *db.Datastore) repo.OrderRepo {
	return &orderImpl{Datastore: store}
}

func (o *orderImpl) CreateOrder(ctx context.Context, data *model.Order) error {
	return o.DBWithContext(ctx).Create(data).Error
}

func (o *orderImpl) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	data := &model.Order{}
	err := o.DBWithContext(ctx).Where("id = ?", id).First(data).Error
	return data, err
}

func (o *orderImpl) GetOrderByUUID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	data := &model.Order{}
	err := o.DBWithContext(ctx).Where("uuid = ?", id).First(data).Error
	return data, err
}

func (o *orderImpl) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	data := &model.Order{}
	err := o.DBWithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(data).Error
	return data, err
}

func (o *orderImpl) UpdateOrderStatus(ctx context.Context, data *model.Order, from model.OrderStatus) (bool, error) {
	res := o.DBWithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", data.ID, from).
		Select("status", "confirmed_at", "shipped_at", "out_for_delivery_at", "delivered_at", "cancelled_at", "notes", "updated_at").
		Updates(data)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (o *orderImpl) UpdateOrderAllocation(ctx context.Context, data *model.Order) error {
	res := o.DBWithContext(ctx).Model(&model.Order{}).
		Where("id = ?", data.ID).
		Select("reactor_id", "reactor_cycle_id", "injection_date", "no_of_elbows", "dosage_per_elbow", "total_dosage", "updated_at").
		Updates(data)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (o *orderImpl) ListOrders(ctx context.Context, filter *repo.OrderFilter) ([]*model.Order, int64, error) {
	var datas []*model.Order
	var total int64
	filter.Normalize()
	query := o.DBWithContext(ctx).Model(&model.Order{})
	if filter.ClinicID > 0 {
		query = query.Where("clinic_id = ?", filter.ClinicID)
	}
	if filter.ReactorID > 0 {
		query = query.Where("reactor_id = ?", filter.ReactorID)
	}
	if len(filter.Status) > 0 {
		query = query.Where("status IN ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("injection_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("injection_date <= ?", *filter.To)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("injection_date DESC, id DESC").
		Limit(filter.PageSize).Offset(filter.Offset()).
		Find(&datas).Error
	return datas, total, err
}
