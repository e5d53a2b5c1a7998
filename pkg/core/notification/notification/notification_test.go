package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/notification"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/core/notify/events"
	"github.com/isoflow/clinicorder/pkg/repo/memory"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/olahol/melody"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fixture struct {
	store  *memory.Store
	queue  *memory.MailQueue
	ws     *melody.Melody
	svc    notification.Service
	north  *model.Clinic
	south  *model.Clinic
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{
		store: store,
		queue: memory.NewMailQueue(16),
		ws:    melody.New(),
		north: &model.Clinic{UserID: "u-north", Name: "North", Email: "north@example.com", IsActive: true},
		south: &model.Clinic{UserID: "u-south", Name: "South", IsActive: true},
	}
	require.NoError(t, store.Clinics().CreateClinic(ctx, f.north))
	require.NoError(t, store.Clinics().CreateClinic(ctx, f.south))
	f.svc = New(ctx, store.Notifications(), store.Clinics(), events.NewLocal(), f.ws, WithMailQueue(f.queue))

	f.ws.HandleConnect(func(s *melody.Session) {
		if err := f.svc.OnWSConnect(ctx, s); err != nil {
			_ = s.CloseWithMsg(melody.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		}
	})
	f.ws.HandleDisconnect(func(s *melody.Session) {
		f.svc.OnWSDisconnect(ctx, s)
	})
	f.ws.HandleMessage(func(s *melody.Session, b []byte) {
		_ = f.svc.OnWSMsg(ctx, s, b)
	})
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("clinic"), 10, 64)
		_ = f.ws.HandleRequestWithKeys(w, r, map[string]any{
			notification.SessionClinicID: id,
			notification.SessionUserID:   "user-" + r.URL.Query().Get("clinic"),
			notification.SessionIsAdmin:  false,
		})
	}))
	t.Cleanup(func() {
		_ = f.ws.Close()
		f.server.Close()
	})
	return f
}

func (f *fixture) dial(t *testing.T, clinicID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?clinic=" + strconv.FormatInt(clinicID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return f.svc.Online(clinicID) > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func event(clinicID int64, action notify.Action, from, to model.OrderStatus) *notify.OrderEvent {
	return &notify.OrderEvent{
		Action: action,
		Order: &model.Order{
			BaseModel:     model.BaseModel{ID: 7, UUID: uuid.NewV4()},
			ClinicID:      clinicID,
			TotalDosage:   decimal.NewFromInt(40),
			InjectionDate: datatypes.Date(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)),
			Status:        to,
		},
		From:        from,
		To:          to,
		ReactorName: "R1",
		CycleName:   "C1",
	}
}

func TestOrderChangedStoresAndMails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := &core.Caller{UserID: f.north.UserID, ClinicID: f.north.ID}

	f.svc.OrderChanged(ctx, event(f.north.ID, notify.OrderStatus, model.OrderPending, model.OrderConfirmed))

	list, err := f.svc.ListNotifications(ctx, caller, &notification.ListReq{UnseenOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Pending -> Confirmed", list.Data[0].StatusChange)
	assert.False(t, list.Data[0].IsSeen)

	payload := &notification.Payload{}
	require.NoError(t, json.Unmarshal(list.Data[0].Data, payload))
	assert.Equal(t, "2024-06-12", payload.InjectionDate)
	assert.Equal(t, "40", payload.TotalDosage)

	require.Equal(t, 1, f.queue.Len())
	job, err := f.queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.MailOrderStatus, job.Kind)
	assert.Equal(t, "north@example.com", job.To)
	assert.Contains(t, job.Body, "from Pending to Confirmed")

	// no contact email, no mail
	f.svc.OrderChanged(ctx, event(f.south.ID, notify.OrderPlaced, "", model.OrderPending))
	assert.Zero(t, f.queue.Len())

	seen, err := f.svc.MarkSeen(ctx, caller, &notification.SeenReq{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seen.Updated)
	list, err = f.svc.ListNotifications(ctx, caller, &notification.ListReq{UnseenOnly: true})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	_, err = f.svc.ListNotifications(ctx, &core.Caller{UserID: "admin", IsAdmin: true}, &notification.ListReq{})
	assert.ErrorIs(t, err, code.NoPermission)
}

func TestOrderChangedPushesToClinicSessions(t *testing.T) {
	f := newFixture(t)
	north := f.dial(t, f.north.ID)
	south := f.dial(t, f.south.ID)

	evt := event(f.north.ID, notify.OrderPlaced, "", model.OrderPending)
	f.svc.OrderChanged(context.Background(), evt)

	require.NoError(t, north.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := north.ReadMessage()
	require.NoError(t, err)
	msg := &notify.SendMsg{}
	require.NoError(t, json.Unmarshal(raw, msg))
	assert.Equal(t, notify.OrderPlaced, msg.Channel)
	assert.Equal(t, f.north.ID, msg.ClinicID)
	assert.Equal(t, evt.Order.UUID, msg.OrderUUID)

	require.NoError(t, south.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = south.ReadMessage()
	assert.Error(t, err)
}

func TestWSPingAndDisconnect(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, f.north.ID)
	assert.Equal(t, int64(1), f.svc.Online(f.north.ID))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"ping"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	reply := &notification.WSReply{}
	require.NoError(t, json.Unmarshal(raw, reply))
	assert.Equal(t, notification.WSPong, reply.Action)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.svc.Online(f.north.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWSRejectsAnonymous(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?clinic=0"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Zero(t, f.svc.Online(0))
}
