package notification

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/olahol/melody"
	"gorm.io/datatypes"
)

// Session keys set on every notification websocket session.
const (
	SessionCtx      = "ctx"
	SessionClinicID = "clinic_id"
	SessionUserID   = "user_id"
	SessionIsAdmin  = "is_admin"
)

type WSAction string

const (
	WSPing WSAction = "ping"
	WSPong WSAction = "pong"
	WSSeen WSAction = "seen"
)

type Service interface {
	notify.OrderNotifier

	ListNotifications(ctx context.Context, caller *core.Caller, req *ListReq) (*common.PageResp[[]*NotificationResp], error)
	MarkSeen(ctx context.Context, caller *core.Caller, req *SeenReq) (*SeenResp, error)

	OnWSConnect(ctx context.Context, s *melody.Session) error
	OnWSDisconnect(ctx context.Context, s *melody.Session)
	OnWSMsg(ctx context.Context, s *melody.Session, b []byte) error
	// Online returns the number of open sessions of a clinic.
	Online(clinicID int64) int64
}

type ListReq struct {
	UnseenOnly bool `form:"unseen_only"`
	common.PageReq
}

type NotificationResp struct {
	UUID         uuid.UUID      `json:"uuid"`
	StatusChange string         `json:"status_change"`
	IsSeen       bool           `json:"is_seen"`
	Data         datatypes.JSON `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SeenReq marks the listed notifications, or all of the clinic's when UUIDs
// is empty.
type SeenReq struct {
	UUIDs []uuid.UUID `json:"uuids"`
}

type SeenResp struct {
	Updated int64 `json:"updated"`
}

type WSMsg struct {
	Action WSAction    `json:"action"`
	UUIDs  []uuid.UUID `json:"uuids,omitempty"`
}

type WSReply struct {
	Action WSAction `json:"action"`
	Data   any      `json:"data,omitempty"`
}

// Payload is the data stored with a notification and pushed to sessions.
type Payload struct {
	OrderUUID     uuid.UUID `json:"order_uuid"`
	Action        string    `json:"action"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	ReactorName   string    `json:"reactor_name,omitempty"`
	CycleName     string    `json:"cycle_name,omitempty"`
	InjectionDate string    `json:"injection_date"`
	TotalDosage   string    `json:"total_dosage"`
}
