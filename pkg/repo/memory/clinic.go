package memory

import (
	"context"
	"sort"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"gorm.io/gorm"
)

type clinicRepo struct {
	*Store
}

func (s *Store) Clinics() repo.ClinicRepo {
	return &clinicRepo{Store: s}
}

func (c *clinicRepo) CreateClinic(ctx context.Context, data *model.Clinic) error {
	return c.do(ctx, func() error {
		for _, e := range c.data.clinics {
			if e.UserID == data.UserID {
				return gorm.ErrDuplicatedKey
			}
		}
		c.stamp(&data.BaseModel)
		c.data.clinics[data.ID] = *data
		return nil
	})
}

func (c *clinicRepo) UpdateClinic(ctx context.Context, data *model.Clinic) error {
	return c.do(ctx, func() error {
		row, ok := c.data.clinics[data.ID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		row.Name = data.Name
		row.Email = data.Email
		row.Phone = data.Phone
		row.Address = data.Address
		row.IsActive = data.IsActive
		row.UpdatedAt = c.now()
		c.data.clinics[data.ID] = row
		return nil
	})
}

func (c *clinicRepo) find(ctx context.Context, match func(*model.Clinic) bool) (*model.Clinic, error) {
	var out *model.Clinic
	err := c.do(ctx, func() error {
		for _, e := range c.data.clinics {
			if match(&e) {
				row := e
				out = &row
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	if err != nil {
		return &model.Clinic{}, err
	}
	return out, nil
}

func (c *clinicRepo) GetClinicByID(ctx context.Context, id int64) (*model.Clinic, error) {
	return c.find(ctx, func(e *model.Clinic) bool { return e.ID == id })
}

func (c *clinicRepo) GetClinicByUUID(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	return c.find(ctx, func(e *model.Clinic) bool { return e.UUID == id })
}

func (c *clinicRepo) GetClinicByUserID(ctx context.Context, userID string) (*model.Clinic, error) {
	return c.find(ctx, func(e *model.Clinic) bool { return e.UserID == userID })
}

func (c *clinicRepo) ListClinics(ctx context.Context, page *common.PageReq) ([]*model.Clinic, int64, error) {
	page.Normalize()
	var all []*model.Clinic
	err := c.do(ctx, func() error {
		for _, e := range c.data.clinics {
			row := e
			all = append(all, &row)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	start := min(page.Offset(), len(all))
	end := min(start+page.PageSize, len(all))
	return all[start:end], int64(len(all)), nil
}
