package memory

import (
	"context"
	"sort"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type notificationRepo struct {
	*Store
}

func (s *Store) Notifications() repo.NotificationRepo {
	return &notificationRepo{Store: s}
}

func (n *notificationRepo) CreateNotification(ctx context.Context, data *model.Notification) error {
	return n.do(ctx, func() error {
		n.stamp(&data.BaseModel)
		n.data.notifications[data.ID] = *data
		return nil
	})
}

func (n *notificationRepo) ListNotifications(ctx context.Context, clinicID int64, unseenOnly bool, page *common.PageReq) ([]*model.Notification, int64, error) {
	page.Normalize()
	var matched []*model.Notification
	err := n.do(ctx, func() error {
		for _, e := range n.data.notifications {
			if e.ClinicID != clinicID || (unseenOnly && e.IsSeen) {
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
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (n *notificationRepo) MarkSeen(ctx context.Context, clinicID int64, ids []uuid.UUID) (int64, error) {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var affected int64
	err := n.do(ctx, func() error {
		for id, row := range n.data.notifications {
			if row.ClinicID != clinicID || row.IsSeen {
				continue
			}
			if _, ok := want[row.UUID]; len(ids) > 0 && !ok {
				continue
			}
			row.IsSeen = true
			row.UpdatedAt = n.now()
			n.data.notifications[id] = row
			affected++
		}
		return nil
	})
	return affected, err
}
