package repo

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type OrderFilter struct {
	ClinicID  int64
	ReactorID int64
	Status    []model.OrderStatus
	From      *time.Time
	To        *time.Time
	common.PageReq
}

type OrderRepo interface {
	TxRunner

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	GetOrderByUUID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	LockOrder(ctx context.Context, id int64) (*model.Order, error)
	// UpdateOrderStatus writes status and timestamps only if the stored
	// status still equals from.
	UpdateOrderStatus(ctx context.Context, o *model.Order, from model.OrderStatus) (bool, error)
	// UpdateOrderAllocation writes cycle, injection date and dosage fields.
	UpdateOrderAllocation(ctx context.Context, o *model.Order) error
	ListOrders(ctx context.Context, filter *OrderFilter) ([]*model.Order, int64, error)
}
