package order

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/constant"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/core/order"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/middleware/trace"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"go.opentelemetry.io/otel/metric"
)

type orderImpl struct {
	reactors repo.ReactorRepo
	orders   repo.OrderRepo
	clinics  repo.ClinicRepo
	cache    repo.CalendarCache
	notifier notify.OrderNotifier
	now      core.Clock

	allocLatency metric.Float64Histogram
}

type Option func(*orderImpl)

func WithClock(now core.Clock) Option {
	return func(o *orderImpl) {
		o.now = now
	}
}

func WithCache(cache repo.CalendarCache) Option {
	return func(o *orderImpl) {
		o.cache = cache
	}
}

func WithNotifier(n notify.OrderNotifier) Option {
	return func(o *orderImpl) {
		o.notifier = n
	}
}

func New(reactors repo.ReactorRepo, orders repo.OrderRepo, clinics repo.ClinicRepo, opts ...Option) order.Service {
	o := &orderImpl{
		reactors: reactors,
		orders:   orders,
		clinics:  clinics,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	hist, err := trace.Meter().Float64Histogram("clinicorder.order.allocation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent in the order allocation transaction."))
	if err != nil {
		logger.Warnf(context.Background(), "create allocation histogram err: %+v", err)
	}
	o.allocLatency = hist
	return o
}

// withRetry runs fn in a transaction and retries it while it fails on a lock
// or serialization conflict.
func (o *orderImpl) withRetry(ctx context.Context, op string, fn func(txCtx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= constant.AllocationAttempts; attempt++ {
		err = o.orders.ExecTx(ctx, fn)
		if !db.IsConflict(err) {
			return err
		}
		metrics.AllocationRetries.Inc()
		logger.Warnf(ctx, "%s conflict attempt: %d err: %+v", op, attempt, err)
	}
	return code.ConcurrencyConflictErr.WithErr(err)
}

func (o *orderImpl) today() time.Time {
	return utils.Day(o.now())
}

func (o *orderImpl) invalidate(ctx context.Context, reactorIDs ...int64) {
	if o.cache == nil {
		return
	}
	for _, id := range reactorIDs {
		if err := o.cache.InvalidateReactor(ctx, id); err != nil {
			logger.Warnf(ctx, "calendar cache invalidate reactor: %d err: %+v", id, err)
		}
	}
}

func (o *orderImpl) notify(ctx context.Context, evt *notify.OrderEvent) {
	if o.notifier == nil {
		return
	}
	o.notifier.OrderChanged(ctx, evt)
}

// visibleOrder loads an order the caller may see. Orders of other clinics
// are reported as not found.
func (o *orderImpl) visibleOrder(ctx context.Context, caller *core.Caller, id uuid.UUID) (*model.Order, error) {
	data, err := o.orders.GetOrderByUUID(ctx, id)
	if err != nil {
		return nil, core.StoreErr(err, code.OrderNotFound, code.QueryRecordErr)
	}
	if !caller.CanAccessClinic(data.ClinicID) {
		return nil, code.OrderNotFound
	}
	return data, nil
}

func (o *orderImpl) GetOrder(ctx context.Context, caller *core.Caller, req *order.OrderReq) (*order.OrderResp, error) {
	data, err := o.visibleOrder(ctx, caller, req.UUID)
	if err != nil {
		return nil, err
	}
	return o.toResp(ctx, data)
}

func (o *orderImpl) ListOrders(ctx context.Context, caller *core.Caller, req *order.ListOrdersReq) (*common.PageResp[[]*order.OrderResp], error) {
	filter := &repo.OrderFilter{PageReq: req.PageReq}
	switch {
	case caller.IsAdmin && req.ClinicUUID != "":
		id, err := uuid.FromString(req.ClinicUUID)
		if err != nil {
			return nil, code.ParamErr.WithMsgf("clinic_uuid: %s", req.ClinicUUID)
		}
		clinic, err := o.clinics.GetClinicByUUID(ctx, id)
		if err != nil {
			return nil, core.StoreErr(err, code.ClinicNotFound, code.QueryRecordErr)
		}
		filter.ClinicID = clinic.ID
	case caller.IsAdmin:
	case caller.ClinicID != 0:
		filter.ClinicID = caller.ClinicID
	default:
		return nil, code.NoPermission
	}

	for _, s := range req.Status {
		st, ok := model.ParseOrderStatus(s)
		if !ok {
			return nil, code.ParamErr.WithMsgf("status: %s", s)
		}
		filter.Status = append(filter.Status, st)
	}
	if req.From != "" {
		from, err := utils.ParseDate(req.From)
		if err != nil {
			return nil, code.ParamErr.WithMsgf("from: %s", req.From)
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := utils.ParseDate(req.To)
		if err != nil {
			return nil, code.ParamErr.WithMsgf("to: %s", req.To)
		}
		filter.To = &to
	}

	datas, total, err := o.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	resps, err := o.toResps(ctx, datas)
	if err != nil {
		return nil, err
	}
	return &common.PageResp[[]*order.OrderResp]{
		Data:     resps,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (o *orderImpl) toResp(ctx context.Context, data *model.Order) (*order.OrderResp, error) {
	resps, err := o.toResps(ctx, []*model.Order{data})
	if err != nil {
		return nil, err
	}
	return resps[0], nil
}

func (o *orderImpl) toResps(ctx context.Context, datas []*model.Order) ([]*order.OrderResp, error) {
	clinics := make(map[int64]*model.Clinic)
	reactors := make(map[int64]*model.Reactor)
	cycles := make(map[int64]*model.ReactorCycle)
	resps := make([]*order.OrderResp, 0, len(datas))

	for _, d := range datas {
		clinic, ok := clinics[d.ClinicID]
		if !ok {
			c, err := o.clinics.GetClinicByID(ctx, d.ClinicID)
			if err != nil {
				return nil, core.StoreErr(err, code.ClinicNotFound, code.QueryRecordErr)
			}
			clinic, clinics[d.ClinicID] = c, c
		}
		owner, ok := reactors[d.ReactorID]
		if !ok {
			r, err := o.reactors.GetReactorByID(ctx, d.ReactorID)
			if err != nil {
				return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
			}
			owner, reactors[d.ReactorID] = r, r
		}
		cycle, ok := cycles[d.ReactorCycleID]
		if !ok {
			c, err := o.reactors.GetCycleByID(ctx, d.ReactorCycleID, true)
			if err != nil {
				return nil, core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
			}
			cycle, cycles[d.ReactorCycleID] = c, c
		}

		next := d.Status.Transitions()
		nextNames := make([]string, 0, len(next))
		for _, st := range next {
			nextNames = append(nextNames, string(st))
		}
		resps = append(resps, &order.OrderResp{
			UUID:             d.UUID,
			ClinicUUID:       clinic.UUID,
			ClinicName:       clinic.Name,
			ReactorUUID:      owner.UUID,
			ReactorName:      owner.Name,
			ReactorCycleUUID: cycle.UUID,
			ReactorCycleName: cycle.Name,
			NoOfElbows:       d.NoOfElbows,
			DosagePerElbow:   d.DosagePerElbow,
			TotalDosage:      d.TotalDosage,
			InjectionDate:    utils.FormatDate(d.InjectionDay()),
			Status:           string(d.Status),
			NextStatus:       nextNames,
			ConfirmedAt:      d.ConfirmedAt,
			ShippedAt:        d.ShippedAt,
			OutForDeliveryAt: d.OutForDeliveryAt,
			DeliveredAt:      d.DeliveredAt,
			CancelledAt:      d.CancelledAt,
			Notes:            d.Notes,
			CreatedAt:        d.CreatedAt,
		})
	}
	return resps, nil
}
