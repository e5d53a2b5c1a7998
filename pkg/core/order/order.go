package order

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/shopspring/decimal"
)

type Service interface {
	PlaceOrder(ctx context.Context, caller *core.Caller, req *PlaceOrderReq) (*OrderResp, error)
	RescheduleOrder(ctx context.Context, caller *core.Caller, req *RescheduleReq) (*OrderResp, error)
	CancelOrder(ctx context.Context, caller *core.Caller, req *OrderReq) (*OrderResp, error)
	UpdateStatus(ctx context.Context, caller *core.Caller, req *UpdateStatusReq) (*OrderResp, error)
	GetOrder(ctx context.Context, caller *core.Caller, req *OrderReq) (*OrderResp, error)
	ListOrders(ctx context.Context, caller *core.Caller, req *ListOrdersReq) (*common.PageResp[[]*OrderResp], error)
}

// PlaceOrderReq names the reactor by uuid or name. Without a cycle uuid the
// first expiring cycle that can serve the dosage is used.
type PlaceOrderReq struct {
	ReactorUUID      uuid.UUID       `json:"reactor_uuid"`
	ReactorName      string          `json:"reactor_name"`
	ReactorCycleUUID uuid.UUID       `json:"reactor_cycle_uuid"`
	InjectionDate    string          `json:"injection_date" binding:"required"`
	NoOfElbows       int             `json:"no_of_elbows"`
	DosagePerElbow   decimal.Decimal `json:"dosage_per_elbow"`
	ClinicUUID       uuid.UUID       `json:"clinic_uuid"`
	Notes            string          `json:"notes"`
}

type RescheduleReq struct {
	UUID             uuid.UUID        `json:"-"`
	ReactorCycleUUID uuid.UUID        `json:"reactor_cycle_uuid"`
	InjectionDate    string           `json:"injection_date" binding:"required"`
	NoOfElbows       *int             `json:"no_of_elbows"`
	DosagePerElbow   *decimal.Decimal `json:"dosage_per_elbow"`
}

type OrderReq struct {
	UUID uuid.UUID `json:"-"`
}

type UpdateStatusReq struct {
	UUID   uuid.UUID `json:"-"`
	Status string    `json:"status" binding:"required"`
	Notes  string    `json:"notes"`
}

type ListOrdersReq struct {
	ClinicUUID string   `form:"clinic_uuid"`
	Status     []string `form:"status"`
	From       string   `form:"from"`
	To         string   `form:"to"`
	common.PageReq
}

type OrderResp struct {
	UUID             uuid.UUID       `json:"uuid"`
	ClinicUUID       uuid.UUID       `json:"clinic_uuid"`
	ClinicName       string          `json:"clinic_name"`
	ReactorUUID      uuid.UUID       `json:"reactor_uuid"`
	ReactorName      string          `json:"reactor_name"`
	ReactorCycleUUID uuid.UUID       `json:"reactor_cycle_uuid"`
	ReactorCycleName string          `json:"reactor_cycle_name"`
	NoOfElbows       int             `json:"no_of_elbows"`
	DosagePerElbow   decimal.Decimal `json:"dosage_per_elbow"`
	TotalDosage      decimal.Decimal `json:"total_dosage"`
	InjectionDate    string          `json:"injection_date"`
	Status           string          `json:"status"`
	NextStatus       []string        `json:"next_status"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt        *time.Time      `json:"shipped_at,omitempty"`
	OutForDeliveryAt *time.Time      `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
