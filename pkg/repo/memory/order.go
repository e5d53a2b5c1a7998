package memory

import (
	"context"
	"sort"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"gorm.io/gorm"
)

type orderRepo struct {
	*Store
}

func (s *Store) Orders() repo.OrderRepo {
	return &orderRepo{Store: s}
}

func (o *orderRepo) CreateOrder(ctx context.Context, data *model.Order) error {
	return o.do(ctx, func() error {
		if _, ok := o.data.cycles[data.ReactorCycleID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
		o.stamp(&data.BaseModel)
		o.data.orders[data.ID] = *data
		return nil
	})
}

func (o *orderRepo) find(ctx context.Context, match func(*model.Order) bool) (*model.Order, error) {
	var out *model.Order
	err := o.do(ctx, func() error {
		for _, e := range o.data.orders {
			if match(&e) {
				row := e
				out = &row
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	if err != nil {
		return &model.Order{}, err
	}
	return out, nil
}

func (o *orderRepo) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	return o.find(ctx, func(e *model.Order) bool { return e.ID == id })
}

func (o *orderRepo) GetOrderByUUID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return o.find(ctx, func(e *model.Order) bool { return e.UUID == id })
}

func (o *orderRepo) LockOrder(ctx context.Context, id int64) (*model.Order, error) {
	return o.GetOrderByID(ctx, id)
}

func (o *orderRepo) UpdateOrderStatus(ctx context.Context, data *model.Order, from model.OrderStatus) (bool, error) {
	var ok bool
	err := o.do(ctx, func() error {
		row, found := o.data.orders[data.ID]
		if !found || row.Status != from {
			return nil
		}
		row.Status = data.Status
		row.ConfirmedAt = data.ConfirmedAt
		row.ShippedAt = data.ShippedAt
		row.OutForDeliveryAt = data.OutForDeliveryAt
		row.DeliveredAt = data.DeliveredAt
		row.CancelledAt = data.CancelledAt
		row.Notes = data.Notes
		row.UpdatedAt = o.now()
		o.data.orders[data.ID] = row
		ok = true
		return nil
	})
	return ok, err
}

func (o *orderRepo) UpdateOrderAllocation(ctx context.Context, data *model.Order) error {
	return o.do(ctx, func() error {
		row, found := o.data.orders[data.ID]
		if !found {
			return gorm.ErrRecordNotFound
		}
		row.ReactorID = data.ReactorID
		row.ReactorCycleID = data.ReactorCycleID
		row.InjectionDate = data.InjectionDate
		row.NoOfElbows = data.NoOfElbows
		row.DosagePerElbow = data.DosagePerElbow
		row.TotalDosage = data.TotalDosage
		row.UpdatedAt = o.now()
		o.data.orders[data.ID] = row
		return nil
	})
}

func (o *orderRepo) ListOrders(ctx context.Context, filter *repo.OrderFilter) ([]*model.Order, int64, error) {
	filter.Normalize()
	var matched []*model.Order
	err := o.do(ctx, func() error {
		for _, e := range o.data.orders {
			if !matchOrder(&e, filter) {
				continue
			}
			row := e
			matched = append(matched, &row)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		di, dj := matched[i].InjectionDay(), matched[j].InjectionDay()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	start := min(filter.Offset(), len(matched))
	end := min(start+filter.PageSize, len(matched))
	return matched[start:end], total, nil
}

func matchOrder(o *model.Order, f *repo.OrderFilter) bool {
	if f.ClinicID > 0 && o.ClinicID != f.ClinicID {
		return false
	}
	if f.ReactorID > 0 && o.ReactorID != f.ReactorID {
		return false
	}
	if len(f.Status) > 0 {
		hit := false
		for _, st := range f.Status {
			if st == o.Status {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	day := o.InjectionDay()
	if f.From != nil && day.Before(*f.From) {
		return false
	}
	if f.To != nil && day.After(*f.To) {
		return false
	}
	return true
}
