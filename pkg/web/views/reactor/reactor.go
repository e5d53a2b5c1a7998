package reactor

import (
	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core/reactor"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
)

type Handle struct {
	rService reactor.Service
}

func NewReactorHandle(rService reactor.Service) *Handle {
	return &Handle{rService: rService}
}

func pathUUID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(ctx.Param("uuid"))
	if err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsgf("uuid: %s", ctx.Param("uuid")))
		return uuid.NewNil(), false
	}
	return id, true
}

// @Summary	list reactors
// @Tags		reactor
// @Produce	json
// @Success	200	{object}	common.Resp{data=[]reactor.ReactorResp}
// @Router		/v1/reactor/list [get]
func (h *Handle) ListReactors(ctx *gin.Context) {
	resp, err := h.rService.ListReactors(ctx, auth.GetCaller(ctx))
	common.Reply(ctx, err, resp)
}

// @Summary	cycles available on a date
// @Tags		reactor
// @Produce	json
// @Param		reactor_name	query		string	true	"reactor name"
// @Param		date			query		string	true	"YYYY-MM-DD"
// @Param		order_uuid		query		string	false	"order being edited"
// @Param		dosage			query		string	false	"minimum remaining mass"
// @Success	200				{object}	common.Resp{data=[]reactor.CycleResp}
// @Router		/v1/reactor/cycles [get]
func (h *Handle) AvailableCycles(ctx *gin.Context) {
	req := &reactor.AvailableCyclesReq{}
	if err := ctx.ShouldBindQuery(req); err != nil {
		logger.Errorf(ctx, "parse AvailableCycles param err: %+v", err)
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.rService.AvailableCycles(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

// @Summary	availability calendar
// @Tags		reactor
// @Produce	json
// @Param		reactor_name	query		string	true	"reactor name"
// @Param		month			query		int		false	"1-12"
// @Param		year			query		int		false	"year"
// @Param		from			query		string	false	"range start"
// @Param		to				query		string	false	"range end"
// @Success	200				{object}	common.Resp{data=reactor.CalendarResp}
// @Router		/v1/reactor/calendar [get]
func (h *Handle) Calendar(ctx *gin.Context) {
	req := &reactor.CalendarReq{}
	if err := ctx.ShouldBindQuery(req); err != nil {
		logger.Errorf(ctx, "parse Calendar param err: %+v", err)
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.rService.Calendar(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) CreateReactor(ctx *gin.Context) {
	req := &reactor.CreateReactorReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.rService.CreateReactor(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) RenameReactor(ctx *gin.Context) {
	req := &reactor.RenameReactorReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	var ok bool
	if req.UUID, ok = pathUUID(ctx); !ok {
		return
	}
	resp, err := h.rService.RenameReactor(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) CreateCycle(ctx *gin.Context) {
	req := &reactor.CreateCycleReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.rService.CreateCycle(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) UpdateCycle(ctx *gin.Context) {
	req := &reactor.UpdateCycleReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	var ok bool
	if req.UUID, ok = pathUUID(ctx); !ok {
		return
	}
	resp, err := h.rService.UpdateCycle(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) ArchiveCycle(ctx *gin.Context) {
	id, ok := pathUUID(ctx)
	if !ok {
		return
	}
	resp, err := h.rService.ArchiveCycle(ctx, auth.GetCaller(ctx), &reactor.CycleReq{UUID: id})
	common.Reply(ctx, err, resp)
}

func (h *Handle) DeleteCycle(ctx *gin.Context) {
	id, ok := pathUUID(ctx)
	if !ok {
		return
	}
	err := h.rService.DeleteCycle(ctx, auth.GetCaller(ctx), &reactor.CycleReq{UUID: id})
	common.Reply(ctx, err)
}

func (h *Handle) ListCycles(ctx *gin.Context) {
	req := &reactor.ListCyclesReq{}
	if err := ctx.ShouldBindQuery(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.rService.ListCycles(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}
