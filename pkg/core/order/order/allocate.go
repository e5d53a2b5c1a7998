package order

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/availability"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/core/order"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/middleware/trace"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

func (o *orderImpl) PlaceOrder(ctx context.Context, caller *core.Caller, req *order.PlaceOrderReq) (*order.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "order.place")
	defer span.End()

	if req.NoOfElbows <= 0 || !req.DosagePerElbow.IsPositive() {
		return nil, code.DosageErr
	}
	d, err := o.injectionDate(req.InjectionDate)
	if err != nil {
		return nil, err
	}
	clinic, err := o.resolveClinic(ctx, caller, req.ClinicUUID)
	if err != nil {
		return nil, err
	}
	owner, err := o.resolveReactor(ctx, req.ReactorUUID, req.ReactorName)
	if err != nil {
		return nil, err
	}

	total := model.TotalDosage(req.NoOfElbows, req.DosagePerElbow)
	span.SetAttributes(attribute.String("reactor", owner.Name), attribute.String("total_dosage", total.String()))

	var (
		data  *model.Order
		cycle *model.ReactorCycle
	)
	start := time.Now()
	err = o.withRetry(ctx, "place order", func(txCtx context.Context) error {
		var (
			locked  *model.ReactorCycle
			drained []int64
		)
		for {
			picked, err := o.pickCycle(txCtx, owner.ID, req.ReactorCycleUUID, d, total, 0, decimal.Zero, drained...)
			if err != nil {
				return err
			}
			locked, err = o.reactors.LockCycle(txCtx, picked.ID)
			if err != nil {
				return core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
			}
			err = checkCapacity(locked, d, total, decimal.Zero)
			if err == nil {
				break
			}
			// the unlocked read went stale; move on to the next FEFO cycle
			if req.ReactorCycleUUID.IsNil() && errors.Is(err, code.CycleCapacityErr) {
				logger.Warnf(txCtx, "cycle %s drained before lock, repicking", locked.Name)
				drained = append(drained, locked.ID)
				continue
			}
			return err
		}
		ok, err := o.reactors.DecrementMass(txCtx, locked.ID, total)
		if err != nil {
			return code.UpdateDataErr.WithErr(err)
		}
		if !ok {
			return code.CycleCapacityErr
		}

		data = &model.Order{
			ClinicID:       clinic.ID,
			ReactorID:      owner.ID,
			ReactorCycleID: locked.ID,
			NoOfElbows:     req.NoOfElbows,
			DosagePerElbow: req.DosagePerElbow,
			TotalDosage:    total,
			InjectionDate:  datatypes.Date(d),
			Status:         model.OrderPending,
			Notes:          req.Notes,
		}
		if err := o.orders.CreateOrder(txCtx, data); err != nil {
			return code.CreateDataErr.WithErr(err)
		}
		cycle = locked
		return nil
	})
	o.recordAllocation(ctx, start, err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Infof(ctx, "order placed uuid: %s clinic: %d cycle: %s total: %s", data.UUID, clinic.ID, cycle.Name, total)
	o.invalidate(ctx, owner.ID)
	o.notify(ctx, &notify.OrderEvent{
		Action:      notify.OrderPlaced,
		Order:       data,
		To:          model.OrderPending,
		ReactorName: owner.Name,
		CycleName:   cycle.Name,
	})
	return o.toResp(ctx, data)
}

func (o *orderImpl) RescheduleOrder(ctx context.Context, caller *core.Caller, req *order.RescheduleReq) (*order.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "order.reschedule")
	defer span.End()

	current, err := o.visibleOrder(ctx, caller, req.UUID)
	if err != nil {
		return nil, err
	}
	d, err := o.injectionDate(req.InjectionDate)
	if err != nil {
		return nil, err
	}
	elbows := current.NoOfElbows
	if req.NoOfElbows != nil {
		elbows = *req.NoOfElbows
	}
	perElbow := current.DosagePerElbow
	if req.DosagePerElbow != nil {
		perElbow = *req.DosagePerElbow
	}
	if elbows <= 0 || !perElbow.IsPositive() {
		return nil, code.DosageErr
	}
	total := model.TotalDosage(elbows, perElbow)

	var (
		data    *model.Order
		cycle   *model.ReactorCycle
		oldName string
	)
	start := time.Now()
	err = o.withRetry(ctx, "reschedule order", func(txCtx context.Context) error {
		locked, err := o.orders.LockOrder(txCtx, current.ID)
		if err != nil {
			return core.StoreErr(err, code.OrderNotFound, code.QueryRecordErr)
		}
		if locked.Status != model.OrderPending {
			return code.OrderNotEditableErr.WithMsgf("status: %s", locked.Status)
		}
		oldID, credit := locked.ReactorCycleID, locked.TotalDosage

		picked, err := o.pickCycle(txCtx, locked.ReactorID, req.ReactorCycleUUID, d, total, oldID, credit)
		if err != nil {
			return err
		}
		// lock in id order so two reschedules crossing the same cycles
		// cannot deadlock
		first, second := oldID, picked.ID
		if second < first {
			first, second = second, first
		}
		lockedCycles := make(map[int64]*model.ReactorCycle, 2)
		for _, id := range []int64{first, second} {
			if _, ok := lockedCycles[id]; ok {
				continue
			}
			c, err := o.reactors.LockCycle(txCtx, id)
			if err != nil {
				return core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
			}
			lockedCycles[id] = c
		}
		target := lockedCycles[picked.ID]
		targetCredit := decimal.Zero
		if target.ID == oldID {
			targetCredit = credit
		}
		if err := checkCapacity(target, d, total, targetCredit); err != nil {
			return err
		}

		if err := o.reactors.IncrementMass(txCtx, oldID, credit); err != nil {
			return core.StoreErr(err, code.CycleNotFound, code.UpdateDataErr)
		}
		ok, err := o.reactors.DecrementMass(txCtx, target.ID, total)
		if err != nil {
			return code.UpdateDataErr.WithErr(err)
		}
		if !ok {
			return code.CycleCapacityErr
		}

		locked.ReactorCycleID = target.ID
		locked.InjectionDate = datatypes.Date(d)
		locked.NoOfElbows = elbows
		locked.DosagePerElbow = perElbow
		locked.TotalDosage = total
		if err := o.orders.UpdateOrderAllocation(txCtx, locked); err != nil {
			return core.StoreErr(err, code.OrderNotFound, code.UpdateDataErr)
		}
		data, cycle, oldName = locked, target, lockedCycles[oldID].Name
		return nil
	})
	o.recordAllocation(ctx, start, err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Infof(ctx, "order rescheduled uuid: %s cycle: %s -> %s date: %s total: %s",
		data.UUID, oldName, cycle.Name, utils.FormatDate(d), total)
	o.invalidate(ctx, data.ReactorID)
	owner, err := o.reactors.GetReactorByID(ctx, data.ReactorID)
	if err != nil {
		return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
	}
	o.notify(ctx, &notify.OrderEvent{
		Action:      notify.OrderMoved,
		Order:       data,
		From:        data.Status,
		To:          data.Status,
		ReactorName: owner.Name,
		CycleName:   cycle.Name,
	})
	return o.toResp(ctx, data)
}

func (o *orderImpl) recordAllocation(ctx context.Context, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = code.From(err).String()
	}
	metrics.Allocations.WithLabelValues(result).Inc()
	if o.allocLatency != nil {
		o.allocLatency.Record(ctx, time.Since(start).Seconds())
	}
}

// pickCycle resolves the cycle to allocate from. An explicit cycle must
// belong to the reactor. Otherwise the first expiring cycle that can hold
// amount is chosen, counting credit as extra mass on ownCycleID. Cycles in
// skip are never chosen.
func (o *orderImpl) pickCycle(txCtx context.Context, reactorID int64, cycleUUID uuid.UUID, d time.Time,
	amount decimal.Decimal, ownCycleID int64, credit decimal.Decimal, skip ...int64) (*model.ReactorCycle, error) {
	if !cycleUUID.IsNil() {
		c, err := o.reactors.GetCycleByUUID(txCtx, cycleUUID, true)
		if err != nil {
			return nil, core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
		}
		if c.ReactorID != reactorID {
			return nil, code.CycleNotFound.WithMsg("cycle does not belong to the reactor")
		}
		return c, nil
	}

	cycles, err := o.reactors.ListCycles(txCtx, reactorID, false)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	candidates := make([]*model.ReactorCycle, 0, len(cycles))
	for _, c := range cycles {
		if slices.Contains(skip, c.ID) {
			continue
		}
		if c.ID == ownCycleID {
			adjusted := *c
			adjusted.Mass = adjusted.Mass.Add(credit)
			c = &adjusted
		}
		candidates = append(candidates, c)
	}
	if c, ok := availability.SelectForDosage(candidates, d, amount); ok {
		return c, nil
	}
	for _, c := range cycles {
		if availability.InWindow(c, d) {
			return nil, code.CycleCapacityErr.WithMsgf("no cycle holds %s on %s", amount, utils.FormatDate(d))
		}
	}
	return nil, code.CycleUnavailableErr.WithMsgf("date: %s", utils.FormatDate(d))
}

// checkCapacity validates a locked cycle against the request. credit is mass
// that will be returned to the cycle in the same transaction.
func checkCapacity(c *model.ReactorCycle, d time.Time, amount, credit decimal.Decimal) error {
	if !availability.InWindow(c, d) {
		return code.CycleUnavailableErr.WithMsgf("cycle: %s date: %s", c.Name, utils.FormatDate(d))
	}
	effective := *c
	effective.Mass = c.Mass.Add(credit)
	if !availability.IsDosageAvailable(&effective, d, amount) {
		return code.CycleCapacityErr.WithMsgf("cycle: %s remaining: %s requested: %s", c.Name, effective.Mass, amount)
	}
	return nil
}

func (o *orderImpl) injectionDate(s string) (time.Time, error) {
	d, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, code.ParamErr.WithMsgf("injection_date: %s", s)
	}
	if !d.After(o.today()) {
		return time.Time{}, code.ParamErr.WithMsgf("injection_date must be after %s", utils.FormatDate(o.today()))
	}
	return d, nil
}

func (o *orderImpl) resolveClinic(ctx context.Context, caller *core.Caller, clinicUUID uuid.UUID) (*model.Clinic, error) {
	var (
		clinic *model.Clinic
		err    error
	)
	switch {
	case caller.IsAdmin && !clinicUUID.IsNil():
		clinic, err = o.clinics.GetClinicByUUID(ctx, clinicUUID)
	case caller.ClinicID != 0:
		clinic, err = o.clinics.GetClinicByID(ctx, caller.ClinicID)
	case caller.IsAdmin:
		return nil, code.ParamErr.WithMsg("clinic_uuid is required")
	default:
		return nil, code.NoPermission
	}
	if err != nil {
		return nil, core.StoreErr(err, code.ClinicNotFound, code.QueryRecordErr)
	}
	if !clinic.IsActive {
		return nil, code.ClinicInactiveErr
	}
	return clinic, nil
}

func (o *orderImpl) resolveReactor(ctx context.Context, id uuid.UUID, name string) (*model.Reactor, error) {
	var (
		owner *model.Reactor
		err   error
	)
	switch {
	case !id.IsNil():
		owner, err = o.reactors.GetReactorByUUID(ctx, id)
	case name != "":
		owner, err = o.reactors.GetReactorByName(ctx, name)
	default:
		return nil, code.ParamErr.WithMsg("reactor_uuid or reactor_name is required")
	}
	if err != nil {
		return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
	}
	return owner, nil
}
