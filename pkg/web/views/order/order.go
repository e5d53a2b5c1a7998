package order

import (
	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core/order"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
)

type Handle struct {
	oService order.Service
}

func NewOrderHandle(oService order.Service) *Handle {
	return &Handle{oService: oService}
}

func pathUUID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(ctx.Param("uuid"))
	if err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsgf("uuid: %s", ctx.Param("uuid")))
		return uuid.NewNil(), false
	}
	return id, true
}

// @Summary	place an order
// @Tags		order
// @Accept		json
// @Produce	json
// @Param		req	body		order.PlaceOrderReq	true	"order"
// @Success	200	{object}	common.Resp{data=order.OrderResp}
// @Router		/v1/order [post]
func (h *Handle) PlaceOrder(ctx *gin.Context) {
	req := &order.PlaceOrderReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		logger.Errorf(ctx, "parse PlaceOrder param err: %+v", err)
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.oService.PlaceOrder(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

// @Summary	list orders
// @Tags		order
// @Produce	json
// @Param		clinic_uuid	query		string		false	"admin only"
// @Param		status		query		[]string	false	"status filter"
// @Param		from		query		string		false	"injection date from"
// @Param		to			query		string		false	"injection date to"
// @Param		page		query		int			false	"page"
// @Param		page_size	query		int			false	"page size"
// @Success	200			{object}	common.Resp{data=common.PageResp[[]order.OrderResp]}
// @Router		/v1/order/list [get]
func (h *Handle) ListOrders(ctx *gin.Context) {
	req := &order.ListOrdersReq{}
	if err := ctx.ShouldBindQuery(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.oService.ListOrders(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) GetOrder(ctx *gin.Context) {
	id, ok := pathUUID(ctx)
	if !ok {
		return
	}
	resp, err := h.oService.GetOrder(ctx, auth.GetCaller(ctx), &order.OrderReq{UUID: id})
	common.Reply(ctx, err, resp)
}

func (h *Handle) RescheduleOrder(ctx *gin.Context) {
	req := &order.RescheduleReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	var ok bool
	if req.UUID, ok = pathUUID(ctx); !ok {
		return
	}
	resp, err := h.oService.RescheduleOrder(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) CancelOrder(ctx *gin.Context) {
	id, ok := pathUUID(ctx)
	if !ok {
		return
	}
	resp, err := h.oService.CancelOrder(ctx, auth.GetCaller(ctx), &order.OrderReq{UUID: id})
	common.Reply(ctx, err, resp)
}

// @Summary	move an order through its lifecycle
// @Tags		admin
// @Accept		json
// @Produce	json
// @Param		uuid	path		string					true	"order uuid"
// @Param		req		body		order.UpdateStatusReq	true	"target status"
// @Success	200		{object}	common.Resp{data=order.OrderResp}
// @Router		/v1/admin/order/{uuid}/status [put]
func (h *Handle) UpdateStatus(ctx *gin.Context) {
	req := &order.UpdateStatusReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	var ok bool
	if req.UUID, ok = pathUUID(ctx); !ok {
		return
	}
	resp, err := h.oService.UpdateStatus(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}
