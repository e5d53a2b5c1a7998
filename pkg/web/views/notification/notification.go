package notification

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/notification"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/olahol/melody"
)

type Handle struct {
	nService notification.Service
	wsClient *melody.Melody
}

// NewNotificationHandle installs the session callbacks on wsClient, which
// must be the same instance the service broadcasts on.
func NewNotificationHandle(nService notification.Service, wsClient *melody.Melody) *Handle {
	h := &Handle{
		nService: nService,
		wsClient: wsClient,
	}
	h.initNotifyWebSocket()
	return h
}

// @Summary	list notifications of the current clinic
// @Tags		notification
// @Produce	json
// @Param		unseen_only	query		bool	false	"only unseen"
// @Param		page		query		int		false	"page"
// @Param		page_size	query		int		false	"page size"
// @Success	200			{object}	common.Resp{data=common.PageResp[[]notification.NotificationResp]}
// @Router		/v1/notification/list [get]
func (h *Handle) ListNotifications(ctx *gin.Context) {
	req := &notification.ListReq{}
	if err := ctx.ShouldBindQuery(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.nService.ListNotifications(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

func (h *Handle) MarkSeen(ctx *gin.Context) {
	req := &notification.SeenReq{}
	if err := ctx.ShouldBindJSON(req); err != nil {
		common.ReplyErr(ctx, code.ParamErr.WithMsg(err.Error()))
		return
	}
	resp, err := h.nService.MarkSeen(ctx, auth.GetCaller(ctx), req)
	common.Reply(ctx, err, resp)
}

// Connect upgrades to the notification websocket of the current caller.
func (h *Handle) Connect(ctx *gin.Context) {
	caller := auth.GetCaller(ctx)
	if caller == nil {
		common.ReplyErr(ctx, code.UnLogin)
		return
	}
	if err := h.wsClient.HandleRequestWithKeys(ctx.Writer, ctx.Request, map[string]any{
		notification.SessionCtx:      ctx,
		notification.SessionUserID:   caller.UserID,
		notification.SessionClinicID: caller.ClinicID,
		notification.SessionIsAdmin:  caller.IsAdmin,
	}); err != nil {
		logger.Errorf(ctx, "notify HandleRequestWithKeys err: %+v", err)
	}
}

func sessionCtx(s *melody.Session) (context.Context, bool) {
	v, ok := s.Get(notification.SessionCtx)
	if !ok {
		return nil, false
	}
	ctx, ok := v.(context.Context)
	return ctx, ok
}

func (h *Handle) initNotifyWebSocket() {
	h.wsClient.HandleDisconnect(func(s *melody.Session) {
		if ctx, ok := sessionCtx(s); ok {
			h.nService.OnWSDisconnect(ctx, s)
		}
	})

	h.wsClient.HandleError(func(s *melody.Session, err error) {
		if errors.Is(err, melody.ErrMessageBufferFull) {
			return
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseGoingAway {
			return
		}
		if ctx, ok := sessionCtx(s); ok {
			logger.Errorf(ctx, "notify ws error keys: %+v, err: %+v", s.Keys, err)
		}
	})

	h.wsClient.HandleConnect(func(s *melody.Session) {
		ctx, ok := sessionCtx(s)
		if !ok {
			ctx = context.Background()
		}
		if err := h.nService.OnWSConnect(ctx, s); err != nil {
			logger.Warnf(ctx, "notify OnWSConnect err: %+v", err)
			_ = s.CloseWithMsg(melody.FormatCloseMessage(websocket.ClosePolicyViolation, code.Msg(err)))
		}
	})

	h.wsClient.HandleMessage(func(s *melody.Session, b []byte) {
		ctx, ok := sessionCtx(s)
		if !ok {
			if err := s.CloseWithMsg([]byte("no ctx")); err != nil {
				logger.Errorf(context.Background(), "notify HandleMessage ctx not exist CloseWithMsg err: %+v", err)
			}
			return
		}
		if err := h.nService.OnWSMsg(ctx, s, b); err != nil {
			logger.Errorf(ctx, "notify handle msg err: %+v", err)
		}
	})

	h.wsClient.HandleSentMessage(func(_ *melody.Session, _ []byte) {})
	h.wsClient.HandleSentMessageBinary(func(_ *melody.Session, _ []byte) {})
}
