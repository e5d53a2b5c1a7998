package clinic

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"gorm.io/gorm"
)

type clinicImpl struct {
	*db.Datastore
}

func New() repo.ClinicRepo {
	return &clinicImpl{Datastore: db.DB()}
}

func (c *clinicImpl) CreateClinic(ctx context.Context, data *model.Clinic) error {
	return c.DBWithContext(ctx).Create(data).Error
}

func (c *clinicImpl) UpdateClinic(ctx context.Context, data *model.Clinic) error {
	res := c.DBWithContext(ctx).Model(&model.Clinic{}).
		Where("id = ?", data.ID).
		Select("name", "email", "phone", "address", "is_active", "updated_at").
		Updates(data)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *clinicImpl) GetClinicByID(ctx context.Context, id int64) (*model.Clinic, error) {
	data := &model.Clinic{}
	err := c.DBWithContext(ctx).Where("id = ?", id).First(data).Error
	return data, err
}

func (c *clinicImpl) GetClinicByUUID(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	data := &model.Clinic{}
	err := c.DBWithContext(ctx).Where("uuid = ?", id).First(data).Error
	return data, err
}

func (c *clinicImpl) GetClinicByUserID(ctx context.Context, userID string) (*model.Clinic, error) {
	data := &model.Clinic{}
	err := c.DBWithContext(ctx).Where("user_id = ?", userID).First(data).Error
	return data, err
}

func (c *clinicImpl) ListClinics(ctx context.Context, page *common.PageReq) ([]*model.Clinic, int64, error) {
	var datas []*model.Clinic
	var total int64
	page.Normalize()
	d := c.DBWithContext(ctx).Model(&model.Clinic{})
	if err := d.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := d.Order("name ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&datas).Error
	return datas, total, err
}
