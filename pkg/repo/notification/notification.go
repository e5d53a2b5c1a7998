package notification

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type notificationImpl struct {
	*db.Datastore
}

func New() repo.NotificationRepo {
	return &notificationImpl{Datastore: db.DB()}
}

func (n *notificationImpl) CreateNotification(ctx context.Context, data *model.Notification) error {
	return n.DBWithContext(ctx).Create(data).Error
}

func (n *notificationImpl) ListNotifications(ctx context.Context, clinicID int64, unseenOnly bool, page *common.PageReq) ([]*model.Notification, int64, error) {
	var datas []*model.Notification
	var total int64
	page.Normalize()
	d := n.DBWithContext(ctx).Model(&model.Notification{}).Where("clinic_id = ?", clinicID)
	if unseenOnly {
		d = d.Where("is_seen = ?", false)
	}
	if err := d.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := d.Order("id DESC").Limit(page.PageSize).Offset(page.Offset()).Find(&datas).Error
	return datas, total, err
}

func (n *notificationImpl) MarkSeen(ctx context.Context, clinicID int64, ids []uuid.UUID) (int64, error) {
	d := n.DBWithContext(ctx).Model(&model.Notification{}).
		Where("clinic_id = ? AND is_seen = ?", clinicID, false)
	if len(ids) > 0 {
		d = d.Where("uuid IN ?", ids)
	}
	res := d.Update("is_seen", true)
	return res.RowsAffected, res.Error
}
