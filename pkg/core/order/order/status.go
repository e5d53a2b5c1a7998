package order

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/core/order"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/middleware/trace"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"go.opentelemetry.io/otel/attribute"
)

// restocked lists the states whose dosage has not left the site yet. A
// cancellation from one of them returns the dosage to the cycle.
var restocked = map[model.OrderStatus]bool{
	model.OrderPending:   true,
	model.OrderConfirmed: true,
}

func (o *orderImpl) UpdateStatus(ctx context.Context, caller *core.Caller, req *order.UpdateStatusReq) (*order.OrderResp, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, code.NoPermission
	}
	to, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		return nil, code.ParamErr.WithMsgf("status: %s", req.Status)
	}
	return o.transition(ctx, caller, req.UUID, to, req.Notes)
}

// CancelOrder lets a clinic withdraw its own order while it is pending.
// Admins may cancel any order that is not terminal.
func (o *orderImpl) CancelOrder(ctx context.Context, caller *core.Caller, req *order.OrderReq) (*order.OrderResp, error) {
	return o.transition(ctx, caller, req.UUID, model.OrderCancelled, "")
}

func (o *orderImpl) transition(ctx context.Context, caller *core.Caller, id uuid.UUID, to model.OrderStatus, notes string) (*order.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "order.transition", attribute.String("to", string(to)))
	defer span.End()

	current, err := o.visibleOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	var (
		data *model.Order
		from model.OrderStatus
	)
	err = o.withRetry(ctx, "order transition", func(txCtx context.Context) error {
		locked, err := o.orders.LockOrder(txCtx, current.ID)
		if err != nil {
			return core.StoreErr(err, code.OrderNotFound, code.QueryRecordErr)
		}
		from = locked.Status
		if !caller.IsAdmin && (to != model.OrderCancelled || from != model.OrderPending) {
			return code.OrderNotEditableErr.WithMsgf("status: %s", from)
		}
		if !from.CanTransitionTo(to) {
			return code.InvalidTransitionErr.WithMsgf("%s -> %s", from, to)
		}

		locked.Status = to
		locked.Stamp(to, o.now())
		if notes != "" {
			locked.Notes = notes
		}
		ok, err := o.orders.UpdateOrderStatus(txCtx, locked, from)
		if err != nil {
			return code.UpdateDataErr.WithErr(err)
		}
		if !ok {
			return code.ConcurrencyConflictErr.WithMsgf("order %s left status %s", locked.UUID, from)
		}
		if to == model.OrderCancelled && restocked[from] {
			if err := o.reactors.IncrementMass(txCtx, locked.ReactorCycleID, locked.TotalDosage); err != nil {
				return core.StoreErr(err, code.CycleNotFound, code.UpdateDataErr)
			}
		}
		data = locked
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	logger.Infof(ctx, "order status changed uuid: %s %s -> %s by: %s", data.UUID, from, to, caller.UserID)
	if to == model.OrderCancelled && restocked[from] {
		o.invalidate(ctx, data.ReactorID)
	}

	evt := &notify.OrderEvent{Action: notify.OrderStatus, Order: data, From: from, To: to}
	if owner, err := o.reactors.GetReactorByID(ctx, data.ReactorID); err == nil {
		evt.ReactorName = owner.Name
	}
	if cycle, err := o.reactors.GetCycleByID(ctx, data.ReactorCycleID, true); err == nil {
		evt.CycleName = cycle.Name
	}
	o.notify(ctx, evt)
	return o.toResp(ctx, data)
}
