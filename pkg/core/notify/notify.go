package notify

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type Action string

const (
	OrderStatus Action = "order-status"
	OrderPlaced Action = "order-placed"
	OrderMoved  Action = "order-rescheduled"
)

type SendMsg struct {
	Channel   Action    `json:"action"`
	ClinicID  int64     `json:"clinic_id"`
	OrderUUID uuid.UUID `json:"order_uuid"`
	Data      any       `json:"data"`
	UUID      uuid.UUID `json:"uuid"`
	Timestamp int64     `json:"timestamp"`
}

type HandleFunc func(ctx context.Context, msg string) error

// MsgCenter fans messages out to every process that registered the action.
type MsgCenter interface {
	Registry(ctx context.Context, msgName Action, handleFunc HandleFunc) error
	Broadcast(ctx context.Context, msg *SendMsg) error
	Close(ctx context.Context) error
}

// OrderEvent describes a committed order change.
type OrderEvent struct {
	Action      Action
	Order       *model.Order
	From        model.OrderStatus
	To          model.OrderStatus
	ReactorName string
	CycleName   string
}

// OrderNotifier receives committed order changes. Implementations report
// their own failures and never block the caller on delivery.
type OrderNotifier interface {
	OrderChanged(ctx context.Context, evt *OrderEvent)
}
