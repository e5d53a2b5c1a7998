package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderShipped        OrderStatus = "shipped"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// orderTransitions lists the states reachable from each state. Terminal
// states have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderConfirmed, OrderCancelled},
	OrderConfirmed:      {OrderShipped, OrderCancelled},
	OrderShipped:        {OrderOutForDelivery, OrderCancelled},
	OrderOutForDelivery: {OrderDelivered, OrderCancelled},
}

var orderStatusLabels = map[OrderStatus]string{
	OrderPending:        "Pending",
	OrderConfirmed:      "Confirmed",
	OrderShipped:        "Shipped",
	OrderOutForDelivery: "Out for delivery",
	OrderDelivered:      "Delivered",
	OrderCancelled:      "Cancelled",
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	return st, st.Valid()
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

func (s OrderStatus) Transitions() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range orderTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Label() string {
	if l, ok := orderStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Order struct {
	BaseModel
	ClinicID         int64           `gorm:"not null;index" json:"clinic_id"`
	ReactorID        int64           `gorm:"not null;index" json:"reactor_id"`
	ReactorCycleID   int64           `gorm:"not null;index" json:"reactor_cycle_id"`
	NoOfElbows       int             `gorm:"not null" json:"no_of_elbows"`
	DosagePerElbow   decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"dosage_per_elbow"`
	TotalDosage      decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"total_dosage"`
	InjectionDate    datatypes.Date  `gorm:"not null;index" json:"injection_date"`
	Status           OrderStatus     `gorm:"type:varchar(32);not null;index" json:"status"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt        *time.Time      `json:"shipped_at,omitempty"`
	OutForDeliveryAt *time.Time      `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`
}

func (*Order) TableName() string {
	return "orders"
}

func (o *Order) InjectionDay() time.Time {
	return time.Time(o.InjectionDate)
}

// Stamp sets the timestamp belonging to status. An already set timestamp is
// kept.
func (o *Order) Stamp(status OrderStatus, at time.Time) {
	var field **time.Time
	switch status {
	case OrderConfirmed:
		field = &o.ConfirmedAt
	case OrderShipped:
		field = &o.ShippedAt
	case OrderOutForDelivery:
		field = &o.OutForDeliveryAt
	case OrderDelivered:
		field = &o.DeliveredAt
	case OrderCancelled:
		field = &o.CancelledAt
	default:
		return
	}
	if *field == nil {
		t := at
		*field = &t
	}
}

func TotalDosage(elbows int, perElbow decimal.Decimal) decimal.Decimal {
	return perElbow.Mul(decimal.NewFromInt(int64(elbows)))
}
