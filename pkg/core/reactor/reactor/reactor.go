package reactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/availability"
	"github.com/isoflow/clinicorder/pkg/core/reactor"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxCalendarDays = 92

type reactorImpl struct {
	reactors repo.ReactorRepo
	orders   repo.OrderRepo
	cache    repo.CalendarCache
	group    singleflight.Group
	now      core.Clock
}

type Option func(*reactorImpl)

func WithClock(now core.Clock) Option {
	return func(r *reactorImpl) {
		r.now = now
	}
}

func New(reactors repo.ReactorRepo, orders repo.OrderRepo, cache repo.CalendarCache, opts ...Option) reactor.Service {
	r := &reactorImpl{
		reactors: reactors,
		orders:   orders,
		cache:    cache,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func requireAdmin(caller *core.Caller) error {
	if caller == nil || !caller.IsAdmin {
		return code.NoPermission
	}
	return nil
}

func (r *reactorImpl) ListReactors(ctx context.Context, _ *core.Caller) ([]*reactor.ReactorResp, error) {
	datas, err := r.reactors.ListReactors(ctx)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	cycles, err := r.reactors.ListCycles(ctx, 0, false)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	counts := make(map[int64]int, len(datas))
	for _, c := range cycles {
		counts[c.ReactorID]++
	}
	return utils.FilterSlice(datas, func(d *model.Reactor) (*reactor.ReactorResp, bool) {
		return &reactor.ReactorResp{UUID: d.UUID, Name: d.Name, Cycles: counts[d.ID]}, true
	}), nil
}

func (r *reactorImpl) CreateReactor(ctx context.Context, caller *core.Caller, req *reactor.CreateReactorReq) (*reactor.ReactorResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, code.ParamErr.WithMsg("reactor name is empty")
	}
	data := &model.Reactor{Name: name}
	if err := r.reactors.CreateReactor(ctx, data); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, code.ReactorNameExistErr.WithMsgf("name: %s", name)
		}
		return nil, code.CreateDataErr.WithErr(err)
	}
	logger.Infof(ctx, "reactor created uuid: %s name: %s by: %s", data.UUID, name, caller.UserID)
	return &reactor.ReactorResp{UUID: data.UUID, Name: data.Name}, nil
}

func (r *reactorImpl) RenameReactor(ctx context.Context, caller *core.Caller, req *reactor.RenameReactorReq) (*reactor.ReactorResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, code.ParamErr.WithMsg("reactor name is empty")
	}
	data, err := r.reactors.GetReactorByUUID(ctx, req.UUID)
	if err != nil {
		return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
	}
	if err := r.reactors.RenameReactor(ctx, data.ID, name); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, code.ReactorNameExistErr.WithMsgf("name: %s", name)
		}
		return nil, core.StoreErr(err, code.ReactorNotFound, code.UpdateDataErr)
	}
	return &reactor.ReactorResp{UUID: data.UUID, Name: name}, nil
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	s, err := utils.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, code.ParamErr.WithMsgf("target_start_date: %s", start)
	}
	e, err := utils.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, code.ParamErr.WithMsgf("expiration_date: %s", end)
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, code.CycleWindowErr
	}
	return s, e, nil
}

func (r *reactorImpl) CreateCycle(ctx context.Context, caller *core.Caller, req *reactor.CreateCycleReq) (*reactor.CycleResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, code.ParamErr.WithMsg("cycle name is empty")
	}
	if req.Mass.IsNegative() {
		return nil, code.ParamErr.WithMsg("mass must not be negative")
	}
	start, end, err := parseWindow(req.TargetStartDate, req.ExpirationDate)
	if err != nil {
		return nil, err
	}
	owner, err := r.reactors.GetReactorByUUID(ctx, req.ReactorUUID)
	if err != nil {
		return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
	}

	data := &model.ReactorCycle{
		ReactorID:       owner.ID,
		Name:            name,
		Mass:            req.Mass,
		TargetStartDate: datatypes.Date(start),
		ExpirationDate:  datatypes.Date(end),
		IsEnabled:       req.IsEnabled == nil || *req.IsEnabled,
	}
	if err := r.reactors.CreateCycle(ctx, data); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, code.CycleNameExistErr.WithMsgf("name: %s", name)
		}
		return nil, code.CreateDataErr.WithErr(err)
	}
	r.invalidate(ctx, owner.ID)
	logger.Infof(ctx, "cycle created uuid: %s reactor: %s mass: %s", data.UUID, owner.Name, data.Mass)
	return toCycleResp(data, owner.UUID), nil
}

func (r *reactorImpl) UpdateCycle(ctx context.Context, caller *core.Caller, req *reactor.UpdateCycleReq) (*reactor.CycleResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	var updated *model.ReactorCycle
	err := r.reactors.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := r.lockByUUID(txCtx, req.UUID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return code.ParamErr.WithMsg("cycle name is empty")
			}
			current.Name = name
		}
		start, end := utils.FormatDate(current.StartDay()), utils.FormatDate(current.ExpirationDay())
		if req.TargetStartDate != nil {
			start = *req.TargetStartDate
		}
		if req.ExpirationDate != nil {
			end = *req.ExpirationDate
		}
		s, e, err := parseWindow(start, end)
		if err != nil {
			return err
		}
		current.TargetStartDate = datatypes.Date(s)
		current.ExpirationDate = datatypes.Date(e)

		if req.IsEnabled != nil {
			if *req.IsEnabled && current.IsArchived() {
				return code.CycleArchivedErr.WithMsgf("status: %s", current.ArchivedStatus)
			}
			current.IsEnabled = *req.IsEnabled
		}
		if err := r.reactors.UpdateCycle(txCtx, current); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return code.CycleNameExistErr.WithMsgf("name: %s", current.Name)
			}
			return core.StoreErr(err, code.CycleNotFound, code.UpdateDataErr)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, updated.ReactorID)
	return r.cycleResp(ctx, updated)
}

// lockByUUID resolves a cycle that has not been soft deleted and holds its
// row lock.
func (r *reactorImpl) lockByUUID(txCtx context.Context, id uuid.UUID) (*model.ReactorCycle, error) {
	found, err := r.reactors.GetCycleByUUID(txCtx, id, true)
	if err != nil {
		return nil, core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
	}
	locked, err := r.reactors.LockCycle(txCtx, found.ID)
	if err != nil {
		return nil, core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
	}
	if locked.IsDeleted() {
		return nil, code.CycleNotFound
	}
	return locked, nil
}

func (r *reactorImpl) ArchiveCycle(ctx context.Context, caller *core.Caller, req *reactor.CycleReq) (*reactor.CycleResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	var archived *model.ReactorCycle
	err := r.reactors.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := r.lockByUUID(txCtx, req.UUID)
		if err != nil {
			return err
		}
		archived = current
		if current.IsArchived() {
			return nil
		}
		current.ArchivedStatus = model.ArchivedDisabled
		current.IsEnabled = false
		return core.StoreErr(r.reactors.UpdateCycle(txCtx, current), code.CycleNotFound, code.UpdateDataErr)
	})
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, archived.ReactorID)
	logger.Infof(ctx, "cycle archived uuid: %s status: %s by: %s", archived.UUID, archived.ArchivedStatus, caller.UserID)
	return r.cycleResp(ctx, archived)
}

func (r *reactorImpl) DeleteCycle(ctx context.Context, caller *core.Caller, req *reactor.CycleReq) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	current, err := r.reactors.GetCycleByUUID(ctx, req.UUID, true)
	if err != nil {
		return core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
	}
	if err := r.reactors.DeleteCycle(ctx, current.ID); err != nil {
		return core.StoreErr(err, code.CycleNotFound, code.DeleteDataErr)
	}
	r.invalidate(ctx, current.ReactorID)
	logger.Infof(ctx, "cycle soft deleted uuid: %s by: %s", current.UUID, caller.UserID)
	return nil
}

func (r *reactorImpl) ListCycles(ctx context.Context, caller *core.Caller, req *reactor.ListCyclesReq) ([]*reactor.CycleResp, error) {
	if req.IncludeArchived {
		if err := requireAdmin(caller); err != nil {
			return nil, err
		}
	}
	var reactorID int64
	if req.ReactorUUID != "" {
		id, err := uuid.FromString(req.ReactorUUID)
		if err != nil {
			return nil, code.ParamErr.WithMsgf("reactor_uuid: %s", req.ReactorUUID)
		}
		owner, err := r.reactors.GetReactorByUUID(ctx, id)
		if err != nil {
			return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
		}
		reactorID = owner.ID
	}
	cycles, err := r.reactors.ListCycles(ctx, reactorID, req.IncludeArchived)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	return r.cycleResps(ctx, cycles, nil)
}

func (r *reactorImpl) AvailableCycles(ctx context.Context, caller *core.Caller, req *reactor.AvailableCyclesReq) ([]*reactor.CycleResp, error) {
	owner, err := r.reactors.GetReactorByName(ctx, req.ReactorName)
	if err != nil {
		return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
	}
	d, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, code.ParamErr.WithMsgf("date: %s", req.Date)
	}
	var dosage decimal.Decimal
	if req.Dosage != "" {
		dosage, err = decimal.NewFromString(req.Dosage)
		if err != nil || !dosage.IsPositive() {
			return nil, code.DosageErr.WithMsgf("dosage: %s", req.Dosage)
		}
	}

	extra, err := r.orderCycle(ctx, caller, owner.ID, req.OrderUUID)
	if err != nil {
		return nil, err
	}
	cycles, err := r.reactors.ListCycles(ctx, owner.ID, false)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}

	candidates := availability.AvailableCycles(cycles, d, extra)
	if !dosage.IsZero() {
		candidates = utils.FilterSlice(candidates, func(c *model.ReactorCycle) (*model.ReactorCycle, bool) {
			return c, (extra != nil && c.ID == extra.ID) || c.Mass.GreaterThanOrEqual(dosage)
		})
	}
	return r.cycleResps(ctx, candidates, &d)
}

// orderCycle returns the cycle an existing order was allocated from when the
// order belongs to reactorID. An order the caller may not see is reported as
// not found. Soft deleted and archived cycles are included.
func (r *reactorImpl) orderCycle(ctx context.Context, caller *core.Caller, reactorID int64, orderUUID string) (*model.ReactorCycle, error) {
	if orderUUID == "" {
		return nil, nil
	}
	id, err := uuid.FromString(orderUUID)
	if err != nil {
		return nil, code.ParamErr.WithMsgf("order_uuid: %s", orderUUID)
	}
	order, err := r.orders.GetOrderByUUID(ctx, id)
	if err != nil {
		return nil, core.StoreErr(err, code.OrderNotFound, code.QueryRecordErr)
	}
	if !caller.CanAccessClinic(order.ClinicID) {
		return nil, code.OrderNotFound
	}
	if order.ReactorID != reactorID {
		return nil, nil
	}
	c, err := r.reactors.GetCycleByID(ctx, order.ReactorCycleID, true)
	if err != nil {
		return nil, core.StoreErr(err, code.CycleNotFound, code.QueryRecordErr)
	}
	return c, nil
}

func (r *reactorImpl) Calendar(ctx context.Context, _ *core.Caller, req *reactor.CalendarReq) (*reactor.CalendarResp, error) {
	owner, err := r.reactors.GetReactorByName(ctx, req.ReactorName)
	if err != nil {
		return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
	}
	from, to, err := calendarRange(req)
	if err != nil {
		return nil, err
	}
	key := repo.CalendarKey{ReactorID: owner.ID, From: from, To: to, Today: utils.Day(r.now())}

	entries, err := r.calendarEntries(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := &reactor.CalendarResp{
		ReactorName: owner.Name,
		From:        utils.FormatDate(from),
		To:          utils.FormatDate(to),
		Entries:     make([]*reactor.CalendarEntryResp, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, &reactor.CalendarEntryResp{
			Date:        utils.FormatDate(e.Date),
			IsAvailable: e.IsAvailable,
		})
	}
	return resp, nil
}

func calendarRange(req *reactor.CalendarReq) (time.Time, time.Time, error) {
	if req.From != "" || req.To != "" {
		from, err := utils.ParseDate(req.From)
		if err != nil {
			return time.Time{}, time.Time{}, code.ParamErr.WithMsgf("from: %s", req.From)
		}
		to, err := utils.ParseDate(req.To)
		if err != nil {
			return time.Time{}, time.Time{}, code.ParamErr.WithMsgf("to: %s", req.To)
		}
		if to.Before(from) || to.Sub(from) > maxCalendarDays*24*time.Hour {
			return time.Time{}, time.Time{}, code.ParamErr.WithMsgf("range must be 0 to %d days", maxCalendarDays)
		}
		return from, to, nil
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 1 {
		return time.Time{}, time.Time{}, code.ParamErr.WithMsgf("month: %d year: %d", req.Month, req.Year)
	}
	from, to := utils.MonthRange(time.Month(req.Month), req.Year)
	return from, to, nil
}

func (r *reactorImpl) calendarEntries(ctx context.Context, key repo.CalendarKey) ([]*model.CalendarEntry, error) {
	if r.cache != nil {
		cached, ok, err := r.cache.GetCalendar(ctx, key)
		if err != nil {
			logger.Warnf(ctx, "calendar cache get reactor: %d err: %+v", key.ReactorID, err)
		}
		if ok {
			metrics.CalendarCache.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.CalendarCache.WithLabelValues("miss").Inc()
	}

	flightKey := fmt.Sprintf("%d:%s:%s:%s", key.ReactorID,
		utils.FormatDate(key.From), utils.FormatDate(key.To), utils.FormatDate(key.Today))
	v, err, _ := r.group.Do(flightKey, func() (any, error) {
		// shared by every waiter on the key, so one caller hanging up must
		// not fail the rest
		ctx := context.WithoutCancel(ctx)
		cycles, err := r.reactors.ListCycles(ctx, key.ReactorID, false)
		if err != nil {
			return nil, code.QueryRecordErr.WithErr(err)
		}
		entries := availability.RangeCalendar(cycles, key.From, key.To, key.Today)
		if r.cache != nil {
			if err := r.cache.SetCalendar(ctx, key, entries); err != nil {
				logger.Warnf(ctx, "calendar cache set reactor: %d err: %+v", key.ReactorID, err)
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.CalendarEntry), nil
}

func (r *reactorImpl) invalidate(ctx context.Context, reactorID int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateReactor(ctx, reactorID); err != nil {
		logger.Warnf(ctx, "calendar cache invalidate reactor: %d err: %+v", reactorID, err)
	}
}

func (r *reactorImpl) cycleResp(ctx context.Context, c *model.ReactorCycle) (*reactor.CycleResp, error) {
	resps, err := r.cycleResps(ctx, []*model.ReactorCycle{c}, nil)
	if err != nil {
		return nil, err
	}
	return resps[0], nil
}

func (r *reactorImpl) cycleResps(ctx context.Context, cycles []*model.ReactorCycle, on *time.Time) ([]*reactor.CycleResp, error) {
	owners := make(map[int64]uuid.UUID)
	resps := make([]*reactor.CycleResp, 0, len(cycles))
	for _, c := range cycles {
		ownerUUID, ok := owners[c.ReactorID]
		if !ok {
			owner, err := r.reactors.GetReactorByID(ctx, c.ReactorID)
			if err != nil {
				return nil, core.StoreErr(err, code.ReactorNotFound, code.QueryRecordErr)
			}
			ownerUUID = owner.UUID
			owners[c.ReactorID] = ownerUUID
		}
		resp := toCycleResp(c, ownerUUID)
		if on != nil {
			avail := availability.IsAvailable(c, *on)
			resp.IsAvailable = &avail
		}
		resps = append(resps, resp)
	}
	return resps, nil
}

func toCycleResp(c *model.ReactorCycle, reactorUUID uuid.UUID) *reactor.CycleResp {
	return &reactor.CycleResp{
		UUID:            c.UUID,
		ReactorUUID:     reactorUUID,
		Name:            c.Name,
		Mass:            c.Mass,
		TargetStartDate: utils.FormatDate(c.StartDay()),
		ExpirationDate:  utils.FormatDate(c.ExpirationDay()),
		IsEnabled:       c.IsEnabled,
		ArchivedStatus:  string(c.ArchivedStatus),
		IsDeleted:       c.IsDeleted(),
	}
}
