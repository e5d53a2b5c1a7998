package repo

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, clinicID int64, unseenOnly bool, page *common.PageReq) ([]*model.Notification, int64, error)
	// MarkSeen flags the given notifications of the clinic, or all of them
	// when ids is empty.
	MarkSeen(ctx context.Context, clinicID int64, ids []uuid.UUID) (int64, error)
}
