package memory

import (
	"context"
	"sort"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type reactorRepo struct {
	*Store
}

func (s *Store) Reactors() repo.ReactorRepo {
	return &reactorRepo{Store: s}
}

func (r *reactorRepo) CreateReactor(ctx context.Context, data *model.Reactor) error {
	return r.do(ctx, func() error {
		for _, e := range r.data.reactors {
			if e.Name == data.Name {
				return gorm.ErrDuplicatedKey
			}
		}
		r.stamp(&data.BaseModel)
		row := *data
		row.Cycles = nil
		r.data.reactors[data.ID] = row
		return nil
	})
}

func (r *reactorRepo) RenameReactor(ctx context.Context, id int64, name string) error {
	return r.do(ctx, func() error {
		row, ok := r.data.reactors[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		for _, e := range r.data.reactors {
			if e.ID != id && e.Name == name {
				return gorm.ErrDuplicatedKey
			}
		}
		row.Name = name
		row.UpdatedAt = r.now()
		r.data.reactors[id] = row
		return nil
	})
}

func (r *reactorRepo) findReactor(ctx context.Context, match func(*model.Reactor) bool) (*model.Reactor, error) {
	var out *model.Reactor
	err := r.do(ctx, func() error {
		for _, e := range r.data.reactors {
			if match(&e) {
				row := e
				out = &row
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	if err != nil {
		return &model.Reactor{}, err
	}
	return out, nil
}

func (r *reactorRepo) GetReactorByID(ctx context.Context, id int64) (*model.Reactor, error) {
	return r.findReactor(ctx, func(e *model.Reactor) bool { return e.ID == id })
}

func (r *reactorRepo) GetReactorByUUID(ctx context.Context, id uuid.UUID) (*model.Reactor, error) {
	return r.findReactor(ctx, func(e *model.Reactor) bool { return e.UUID == id })
}

func (r *reactorRepo) GetReactorByName(ctx context.Context, name string) (*model.Reactor, error) {
	return r.findReactor(ctx, func(e *model.Reactor) bool { return e.Name == name })
}

func (r *reactorRepo) ListReactors(ctx context.Context) ([]*model.Reactor, error) {
	var out []*model.Reactor
	err := r.do(ctx, func() error {
		for _, e := range r.data.reactors {
			row := e
			out = append(out, &row)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *reactorRepo) CreateCycle(ctx context.Context, data *model.ReactorCycle) error {
	return r.do(ctx, func() error {
		if _, ok := r.data.reactors[data.ReactorID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
		for _, e := range r.data.cycles {
			if e.Name == data.Name {
				return gorm.ErrDuplicatedKey
			}
		}
		if data.Mass.IsNegative() {
			return gorm.ErrCheckConstraintViolated
		}
		r.stamp(&data.BaseModel)
		r.data.cycles[data.ID] = *data
		return nil
	})
}

func (r *reactorRepo) UpdateCycle(ctx context.Context, data *model.ReactorCycle) error {
	return r.do(ctx, func() error {
		row, ok := r.data.cycles[data.ID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		for _, e := range r.data.cycles {
			if e.ID != data.ID && e.Name == data.Name {
				return gorm.ErrDuplicatedKey
			}
		}
		row.Name = data.Name
		row.TargetStartDate = data.TargetStartDate
		row.ExpirationDate = data.ExpirationDate
		row.IsEnabled = data.IsEnabled
		row.ArchivedStatus = data.ArchivedStatus
		row.UpdatedAt = r.now()
		r.data.cycles[data.ID] = row
		return nil
	})
}

func (r *reactorRepo) DeleteCycle(ctx context.Context, id int64) error {
	return r.do(ctx, func() error {
		row, ok := r.data.cycles[id]
		if !ok || row.DeletedAt.Valid {
			return gorm.ErrRecordNotFound
		}
		row.DeletedAt = gorm.DeletedAt{Time: r.now(), Valid: true}
		r.data.cycles[id] = row
		return nil
	})
}

func visible(c *model.ReactorCycle, includeArchived bool) bool {
	return includeArchived || (!c.DeletedAt.Valid && c.ArchivedStatus == model.ArchivedNone)
}

func (r *reactorRepo) findCycle(ctx context.Context, includeArchived bool, match func(*model.ReactorCycle) bool) (*model.ReactorCycle, error) {
	var out *model.ReactorCycle
	err := r.do(ctx, func() error {
		for _, e := range r.data.cycles {
			if visible(&e, includeArchived) && match(&e) {
				row := e
				out = &row
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	if err != nil {
		return &model.ReactorCycle{}, err
	}
	return out, nil
}

func (r *reactorRepo) GetCycleByID(ctx context.Context, id int64, includeArchived bool) (*model.ReactorCycle, error) {
	return r.findCycle(ctx, includeArchived, func(c *model.ReactorCycle) bool { return c.ID == id })
}

func (r *reactorRepo) GetCycleByUUID(ctx context.Context, id uuid.UUID, includeArchived bool) (*model.ReactorCycle, error) {
	return r.findCycle(ctx, includeArchived, func(c *model.ReactorCycle) bool { return c.UUID == id })
}

func (r *reactorRepo) ListCycles(ctx context.Context, reactorID int64, includeArchived bool) ([]*model.ReactorCycle, error) {
	var out []*model.ReactorCycle
	err := r.do(ctx, func() error {
		for _, e := range r.data.cycles {
			if (reactorID == 0 || e.ReactorID == reactorID) && visible(&e, includeArchived) {
				row := e
				out = append(out, &row)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		ei, ej := out[i].ExpirationDay(), out[j].ExpirationDay()
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *reactorRepo) LockCycle(ctx context.Context, id int64) (*model.ReactorCycle, error) {
	return r.GetCycleByID(ctx, id, true)
}

func (r *reactorRepo) DecrementMass(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	var ok bool
	err := r.do(ctx, func() error {
		row, found := r.data.cycles[id]
		if !found || row.Mass.LessThan(amount) {
			return nil
		}
		row.Mass = row.Mass.Sub(amount)
		row.UpdatedAt = r.now()
		r.data.cycles[id] = row
		ok = true
		return nil
	})
	return ok, err
}

func (r *reactorRepo) IncrementMass(ctx context.Context, id int64, amount decimal.Decimal) error {
	return r.do(ctx, func() error {
		row, found := r.data.cycles[id]
		if !found {
			return gorm.ErrRecordNotFound
		}
		row.Mass = row.Mass.Add(amount)
		row.UpdatedAt = r.now()
		r.data.cycles[id] = row
		return nil
	})
}

func (r *reactorRepo) ArchiveExpired(ctx context.Context, today time.Time) ([]int64, error) {
	var reactorIDs []int64
	err := r.do(ctx, func() error {
		seen := make(map[int64]struct{})
		for id, row := range r.data.cycles {
			if row.DeletedAt.Valid || row.ArchivedStatus != model.ArchivedNone || !row.ExpirationDay().Before(today) {
				continue
			}
			row.ArchivedStatus = model.ArchivedExpired
			row.IsEnabled = false
			row.UpdatedAt = r.now()
			r.data.cycles[id] = row
			if _, ok := seen[row.ReactorID]; !ok {
				seen[row.ReactorID] = struct{}{}
				reactorIDs = append(reactorIDs, row.ReactorID)
			}
		}
		return nil
	})
	sort.Slice(reactorIDs, func(i, j int) bool { return reactorIDs[i] < reactorIDs[j] })
	return reactorIDs, err
}
