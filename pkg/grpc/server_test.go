package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/isoflow/clinicorder/internal/config"
	clinicImpl "github.com/isoflow/clinicorder/pkg/core/clinic/clinic"
	reactorImpl "github.com/isoflow/clinicorder/pkg/core/reactor/reactor"
	"github.com/isoflow/clinicorder/pkg/grpc/services"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/repo/memory"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/datatypes"
)

var authConf = &config.Auth{JWTSecret: "grpc-secret", JWTIssuer: "grpc-test", AdminRole: "admin"}

func day(s string) datatypes.Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return datatypes.Date(t)
}

func dial(t *testing.T) *ggrpc.ClientConn {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Clinics().CreateClinic(ctx, &model.Clinic{UserID: "u-north", Name: "North", IsActive: true}))
	r := &model.Reactor{Name: "R1"}
	require.NoError(t, store.Reactors().CreateReactor(ctx, r))
	require.NoError(t, store.Reactors().CreateCycle(ctx, &model.ReactorCycle{
		ReactorID:       r.ID,
		Name:            "C1",
		Mass:            decimal.NewFromInt(50),
		TargetStartDate: day("2024-06-10"),
		ExpirationDate:  day("2024-06-20"),
		IsEnabled:       true,
	}))

	rSvc := reactorImpl.New(store.Reactors(), store.Orders(), memory.NewCalendarCache(),
		reactorImpl.WithClock(func() time.Time { return time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC) }))
	s := New(authConf, clinicImpl.New(store.Clinics(), authConf.AdminRole), rSvc)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := ggrpc.NewClient("passthrough:///bufnet",
		ggrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		ggrpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func withToken(t *testing.T, userID string) context.Context {
	t.Helper()
	tok, err := auth.SignToken(authConf.JWTSecret, authConf.JWTIssuer, &model.UserData{ID: userID}, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func TestListCycles(t *testing.T) {
	conn := dial(t)
	req, err := structpb.NewStruct(map[string]any{"reactor_name": "R1", "date": "2024-06-12", "dosage": "20"})
	require.NoError(t, err)

	out := &structpb.Struct{}
	require.NoError(t, conn.Invoke(withToken(t, "u-north"), services.ListCyclesMethod, req, out))
	cycles := out.GetFields()["cycles"].GetListValue().GetValues()
	require.Len(t, cycles, 1)
	assert.Equal(t, "C1", cycles[0].GetStructValue().GetFields()["name"].GetStringValue())

	req, err = structpb.NewStruct(map[string]any{"reactor_name": "R1", "date": "2024-06-25"})
	require.NoError(t, err)
	require.NoError(t, conn.Invoke(withToken(t, "u-north"), services.ListCyclesMethod, req, out))
	assert.Empty(t, out.GetFields()["cycles"].GetListValue().GetValues())
}

func TestMonthCalendar(t *testing.T) {
	conn := dial(t)
	req, err := structpb.NewStruct(map[string]any{"reactor_name": "R1", "month": 6, "year": 2024})
	require.NoError(t, err)

	out := &structpb.Struct{}
	require.NoError(t, conn.Invoke(withToken(t, "u-north"), services.MonthCalendarMethod, req, out))
	assert.Len(t, out.GetFields()["entries"].GetListValue().GetValues(), 25)

	req, err = structpb.NewStruct(map[string]any{"reactor_name": "R9", "month": 6, "year": 2024})
	require.NoError(t, err)
	err = conn.Invoke(withToken(t, "u-north"), services.MonthCalendarMethod, req, out)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestAuthInterceptor(t *testing.T) {
	conn := dial(t)
	req, err := structpb.NewStruct(map[string]any{"reactor_name": "R1", "date": "2024-06-12"})
	require.NoError(t, err)

	err = conn.Invoke(context.Background(), services.ListCyclesMethod, req, &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	err = conn.Invoke(bad, services.ListCyclesMethod, req, &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: services.AvailabilityServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
