package clinic

import (
	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core/clinic"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
)

type Handle struct {
	cService clinic.Service
}

func NewClinicHandle(cService clinic.Service) *Handle {
	return &Handle{cService: cService}
}

func (h *Handle) Profile(ctx *gin.Context) {
	resp, err := h.cService.Profile(ctx, auth.GetCaller(ctx))
	common.Reply(ctx, err, resp)
}

func (h *Handle) UpdateProfile(ctx *gin.Context) {
	req := &clinic.ProfileReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.cService.UpdateProfile(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) CreateClinic(ctx *gin.Context) {
	req := &clinic.CreateReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.cService.CreateClinic(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) UpdateClinic(ctx *gin.Context) {
	req := &clinic.UpdateReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	id, err := uuid.FromString(ctx.Param("uuid"))
	if err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsgf("uuid: %s", ctx.Param("uuid")))
		return
	}
	req.UUID = id
	resp, err := h.cService.UpdateClinic(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) ListClinics(ctx *gin.Context) {
	req := &common.PageReq{}
	if err := ctx.ShouldBindQuery(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.cService.ListClinics(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}
