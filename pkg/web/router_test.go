package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/notify/events"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/repo/memory"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var authConf = &config.Auth{
	AuthSource: config.AuthJWT,
	JWTSecret:  "router-secret",
	JWTIssuer:  "router-test",
	AdminRole:  "admin",
}

type apiResp struct {
	Code  code.ErrCode    `json:"code"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Msg string `json:"msg"`
	} `json:"error"`
}

type env struct {
	engine *gin.Engine
	store  *memory.Store
	cycle  *model.ReactorCycle
	clinic string
	admin  string
	day    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	store := memory.NewStore()

	clinic := &model.Clinic{UserID: "u-north", Name: "North Clinic", IsActive: true}
	require.NoError(t, store.Clinics().CreateClinic(ctx, clinic))
	reactor := &model.Reactor{Name: "R1"}
	require.NoError(t, store.Reactors().CreateReactor(ctx, reactor))
	now := utils.Day(time.Now().UTC())
	cycle := &model.ReactorCycle{
		ReactorID:       reactor.ID,
		Name:            "C1",
		Mass:            decimal.NewFromInt(50),
		TargetStartDate: datatypes.Date(now.AddDate(0, 0, 1)),
		ExpirationDate:  datatypes.Date(now.AddDate(0, 0, 20)),
		IsEnabled:       true,
	}
	require.NoError(t, store.Reactors().CreateCycle(ctx, cycle))

	svc := NewServices(ctx, &Repos{
		Reactors:      store.Reactors(),
		Orders:        store.Orders(),
		Clinics:       store.Clinics(),
		Notifications: store.Notifications(),
		Cache:         memory.NewCalendarCache(),
		MailQueue:     memory.NewMailQueue(16),
		MsgCenter:     events.NewLocal(),
	}, authConf.AdminRole)
	g := gin.New()
	InstallURL(g, authConf, svc)

	sign := func(id string, roles ...string) string {
		tok, err := auth.SignToken(authConf.JWTSecret, authConf.JWTIssuer,
			&model.UserData{ID: id, Name: id, Roles: roles}, time.Hour)
		require.NoError(t, err)
		return tok
	}
	return &env{
		engine: g,
		store:  store,
		cycle:  cycle,
		clinic: sign(clinic.UserID),
		admin:  sign("u-admin", "admin"),
		day:    utils.FormatDate(now.AddDate(0, 0, 5)),
	}
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, *apiResp) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	resp := &apiResp{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp), w.Body.String())
	return w.Code, resp
}

func (e *env) placeOrder(t *testing.T, dosage string) string {
	t.Helper()
	status, resp := e.do(t, http.MethodPost, "/api/v1/order", e.clinic, map[string]any{
		"reactor_name":     "R1",
		"injection_date":   e.day,
		"no_of_elbows":     1,
		"dosage_per_elbow": dosage,
	})
	require.Equal(t, http.StatusOK, status, resp.Error)
	out := struct {
		UUID   string `json:"uuid"`
		Status string `json:"status"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.Equal(t, "pending", out.Status)
	return out.UUID
}

func TestRequiresToken(t *testing.T) {
	e := newEnv(t)
	status, resp := e.do(t, http.MethodGet, "/api/v1/reactor/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, code.UnLogin, resp.Code)
}

func TestAdminRoutesRejectClinics(t *testing.T) {
	e := newEnv(t)
	status, resp := e.do(t, http.MethodPost, "/api/v1/admin/reactor", e.clinic, map[string]any{"name": "R2"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, code.NoPermission, resp.Code)

	status, _ = e.do(t, http.MethodPost, "/api/v1/admin/reactor", e.admin, map[string]any{"name": "R2"})
	assert.Equal(t, http.StatusOK, status)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.placeOrder(t, "40")

	got, err := e.store.Reactors().GetCycleByID(context.Background(), e.cycle.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Mass.Equal(decimal.NewFromInt(10)))

	status, resp := e.do(t, http.MethodPost, "/api/v1/order", e.clinic, map[string]any{
		"reactor_name":     "R1",
		"injection_date":   e.day,
		"no_of_elbows":     1,
		"dosage_per_elbow": "40",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, code.CycleCapacityErr, resp.Code)

	status, resp = e.do(t, http.MethodPut, "/api/v1/admin/order/"+id+"/status", e.admin, map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusOK, status, resp.Error)

	status, resp = e.do(t, http.MethodPut, "/api/v1/admin/order/"+id+"/status", e.admin, map[string]any{"status": "delivered"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, code.InvalidTransitionErr, resp.Code)

	status, resp = e.do(t, http.MethodGet, "/api/v1/order/list", e.clinic, nil)
	require.Equal(t, http.StatusOK, status)
	page := struct {
		Total int64 `json:"total"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.EqualValues(t, 1, page.Total)

	status, resp = e.do(t, http.MethodGet, "/api/v1/notification/list?unseen_only=true", e.clinic, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.EqualValues(t, 2, page.Total)
}

func TestBadOrderUUID(t *testing.T) {
	e := newEnv(t)
	status, resp := e.do(t, http.MethodGet, "/api/v1/order/not-a-uuid", e.clinic, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, code.ParamErr, resp.Code)
}

func TestAvailableCyclesOverHTTP(t *testing.T) {
	e := newEnv(t)
	status, resp := e.do(t, http.MethodGet, "/api/v1/reactor/cycles?reactor_name=R1&date="+e.day, e.clinic, nil)
	require.Equal(t, http.StatusOK, status)
	var cycles []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &cycles))
	require.Len(t, cycles, 1)
	assert.Equal(t, "C1", cycles[0].Name)

	status, resp = e.do(t, http.MethodGet, "/api/v1/reactor/cycles?reactor_name=R1", e.clinic, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, code.ParamErr, resp.Code)
}
