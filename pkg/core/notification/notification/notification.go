package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/notification"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/olahol/melody"
	"gorm.io/datatypes"
)

type notificationImpl struct {
	notifications repo.NotificationRepo
	clinics       repo.ClinicRepo
	queue         repo.MailQueue
	msgCenter     notify.MsgCenter
	wsClient      *melody.Melody
	online        *haxmap.Map[int64, *atomic.Int64]
}

type Option func(*notificationImpl)

// WithMailQueue enables an email for every order change.
func WithMailQueue(q repo.MailQueue) Option {
	return func(n *notificationImpl) {
		n.queue = q
	}
}

// New registers the order actions on msgCenter so broadcasts from any
// process reach the sessions held by wsClient.
func New(ctx context.Context, notifications repo.NotificationRepo, clinics repo.ClinicRepo,
	msgCenter notify.MsgCenter, wsClient *melody.Melody, opts ...Option) notification.Service {
	n := &notificationImpl{
		notifications: notifications,
		clinics:       clinics,
		msgCenter:     msgCenter,
		wsClient:      wsClient,
		online:        haxmap.New[int64, *atomic.Int64](),
	}
	for _, opt := range opts {
		opt(n)
	}
	for _, action := range []notify.Action{notify.OrderPlaced, notify.OrderStatus, notify.OrderMoved} {
		if err := msgCenter.Registry(ctx, action, n.onBroadcast); err != nil {
			logger.Errorf(ctx, "Registry %s fail err: %+v", action, err)
		}
	}
	return n
}

func (n *notificationImpl) OrderChanged(ctx context.Context, evt *notify.OrderEvent) {
	if evt == nil || evt.Order == nil {
		return
	}
	clinic, err := n.clinics.GetClinicByID(ctx, evt.Order.ClinicID)
	if err != nil {
		logger.Errorf(ctx, "notify order: %s get clinic: %d err: %+v", evt.Order.UUID, evt.Order.ClinicID, err)
		return
	}

	payload := &notification.Payload{
		OrderUUID:     evt.Order.UUID,
		Action:        string(evt.Action),
		From:          string(evt.From),
		To:            string(evt.To),
		ReactorName:   evt.ReactorName,
		CycleName:     evt.CycleName,
		InjectionDate: utils.FormatDate(evt.Order.InjectionDay()),
		TotalDosage:   evt.Order.TotalDosage.String(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf(ctx, "notify order: %s marshal payload err: %+v", evt.Order.UUID, err)
		return
	}
	row := &model.Notification{
		ClinicID:     clinic.ID,
		OrderID:      evt.Order.ID,
		StatusChange: statusChange(evt),
		Data:         datatypes.JSON(raw),
	}
	if err := n.notifications.CreateNotification(ctx, row); err != nil {
		logger.Errorf(ctx, "notify order: %s create notification err: %+v", evt.Order.UUID, err)
	} else if err := n.msgCenter.Broadcast(ctx, &notify.SendMsg{
		Channel:   evt.Action,
		ClinicID:  clinic.ID,
		OrderUUID: evt.Order.UUID,
		Data:      toResp(row),
		UUID:      uuid.NewV4(),
		Timestamp: time.Now().Unix(),
	}); err != nil {
		logger.Errorf(ctx, "notify order: %s broadcast err: %+v", evt.Order.UUID, err)
	}

	if n.queue == nil || clinic.Email == "" {
		return
	}
	job := mailFor(evt, clinic, payload)
	if err := n.queue.Enqueue(ctx, job); err != nil {
		metrics.MailJobs.WithLabelValues("enqueue", "error").Inc()
		logger.Errorf(ctx, "notify order: %s enqueue mail err: %+v", evt.Order.UUID, err)
		return
	}
	metrics.MailJobs.WithLabelValues("enqueue", "ok").Inc()
}

func statusChange(evt *notify.OrderEvent) string {
	switch evt.Action {
	case notify.OrderPlaced:
		return fmt.Sprintf("Order placed for %s", utils.FormatDate(evt.Order.InjectionDay()))
	case notify.OrderMoved:
		return fmt.Sprintf("Order rescheduled to %s", utils.FormatDate(evt.Order.InjectionDay()))
	default:
		return fmt.Sprintf("%s -> %s", evt.From.Label(), evt.To.Label())
	}
}

func mailFor(evt *notify.OrderEvent, clinic *model.Clinic, p *notification.Payload) *model.MailJob {
	job := &model.MailJob{
		To: clinic.Email,
		Vars: map[string]string{
			"clinic":         clinic.Name,
			"order_uuid":     p.OrderUUID.String(),
			"injection_date": p.InjectionDate,
			"total_dosage":   p.TotalDosage,
			"reactor":        p.ReactorName,
			"status":         evt.To.Label(),
		},
		EnqueuedAt: time.Now(),
	}
	switch evt.Action {
	case notify.OrderPlaced:
		job.Kind = model.MailOrderPlaced
		job.Subject = fmt.Sprintf("Order received for %s", p.InjectionDate)
		job.Body = fmt.Sprintf("Dear %s,\n\nwe received your order of %s mCi from %s for injection on %s.\n",
			clinic.Name, p.TotalDosage, p.ReactorName, p.InjectionDate)
	case notify.OrderMoved:
		job.Kind = model.MailOrderUpdated
		job.Subject = fmt.Sprintf("Order moved to %s", p.InjectionDate)
		job.Body = fmt.Sprintf("Dear %s,\n\nyour order %s is now scheduled for %s with %s mCi.\n",
			clinic.Name, p.OrderUUID, p.InjectionDate, p.TotalDosage)
	default:
		job.Kind = model.MailOrderStatus
		job.Subject = fmt.Sprintf("Order status: %s", evt.To.Label())
		job.Body = fmt.Sprintf("Dear %s,\n\nyour order %s for %s changed from %s to %s.\n",
			clinic.Name, p.OrderUUID, p.InjectionDate, evt.From.Label(), evt.To.Label())
	}
	return job
}

// onBroadcast forwards a bus message to the local sessions of its clinic
// and to admin sessions.
func (n *notificationImpl) onBroadcast(ctx context.Context, msg string) error {
	sendMsg := &notify.SendMsg{}
	if err := json.Unmarshal([]byte(msg), sendMsg); err != nil {
		return code.NotifySendMsgErr.WithErr(err)
	}
	if n.wsClient == nil {
		return nil
	}
	return n.wsClient.BroadcastFilter([]byte(msg), func(s *melody.Session) bool {
		if admin, ok := s.Get(notification.SessionIsAdmin); ok && admin.(bool) {
			return true
		}
		id, ok := s.Get(notification.SessionClinicID)
		return ok && id.(int64) == sendMsg.ClinicID
	})
}

func (n *notificationImpl) ListNotifications(ctx context.Context, caller *core.Caller, req *notification.ListReq) (*common.PageResp[[]*notification.NotificationResp], error) {
	if caller == nil || caller.ClinicID == 0 {
		return nil, code.NoPermission
	}
	page := req.PageReq
	datas, total, err := n.notifications.ListNotifications(ctx, caller.ClinicID, req.UnseenOnly, &page)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	return &common.PageResp[[]*notification.NotificationResp]{
		Data: utils.FilterSlice(datas, func(d *model.Notification) (*notification.NotificationResp, bool) {
			return toResp(d), true
		}),
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

func (n *notificationImpl) MarkSeen(ctx context.Context, caller *core.Caller, req *notification.SeenReq) (*notification.SeenResp, error) {
	if caller == nil || caller.ClinicID == 0 {
		return nil, code.NoPermission
	}
	updated, err := n.notifications.MarkSeen(ctx, caller.ClinicID, req.UUIDs)
	if err != nil {
		return nil, code.UpdateDataErr.WithErr(err)
	}
	return &notification.SeenResp{Updated: updated}, nil
}

func toResp(d *model.Notification) *notification.NotificationResp {
	return &notification.NotificationResp{
		UUID:         d.UUID,
		StatusChange: d.StatusChange,
		IsSeen:       d.IsSeen,
		Data:         d.Data,
		CreatedAt:    d.CreatedAt,
	}
}

func sessionCaller(s *melody.Session) *core.Caller {
	caller := &core.Caller{}
	if v, ok := s.Get(notification.SessionUserID); ok {
		caller.UserID, _ = v.(string)
	}
	if v, ok := s.Get(notification.SessionClinicID); ok {
		caller.ClinicID, _ = v.(int64)
	}
	if v, ok := s.Get(notification.SessionIsAdmin); ok {
		caller.IsAdmin, _ = v.(bool)
	}
	return caller
}

func (n *notificationImpl) OnWSConnect(ctx context.Context, s *melody.Session) error {
	caller := sessionCaller(s)
	if caller.ClinicID == 0 && !caller.IsAdmin {
		return code.NoPermission
	}
	counter, _ := n.online.GetOrCompute(caller.ClinicID, func() *atomic.Int64 {
		return &atomic.Int64{}
	})
	counter.Add(1)
	metrics.OnlineClinics.Inc()
	logger.Infof(ctx, "notify ws connect user: %s clinic: %d", caller.UserID, caller.ClinicID)
	return nil
}

func (n *notificationImpl) OnWSDisconnect(ctx context.Context, s *melody.Session) {
	caller := sessionCaller(s)
	if counter, ok := n.online.Get(caller.ClinicID); ok && counter.Add(-1) >= 0 {
		metrics.OnlineClinics.Dec()
	}
	logger.Infof(ctx, "notify ws disconnect user: %s clinic: %d", caller.UserID, caller.ClinicID)
}

func (n *notificationImpl) Online(clinicID int64) int64 {
	if counter, ok := n.online.Get(clinicID); ok {
		return counter.Load()
	}
	return 0
}

func (n *notificationImpl) OnWSMsg(ctx context.Context, s *melody.Session, b []byte) error {
	msg := &notification.WSMsg{}
	if err := json.Unmarshal(b, msg); err != nil {
		return code.ParamErr.WithErr(err)
	}
	var reply *notification.WSReply
	switch msg.Action {
	case notification.WSPing:
		reply = &notification.WSReply{Action: notification.WSPong}
	case notification.WSSeen:
		resp, err := n.MarkSeen(ctx, sessionCaller(s), &notification.SeenReq{UUIDs: msg.UUIDs})
		if err != nil {
			return err
		}
		reply = &notification.WSReply{Action: notification.WSSeen, Data: resp}
	default:
		return code.ParamErr.WithMsgf("unknown ws action: %s", msg.Action)
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		return code.NotifySendMsgErr.WithErr(err)
	}
	return s.Write(raw)
}
