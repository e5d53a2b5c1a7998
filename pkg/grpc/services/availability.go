package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/reactor"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	AvailabilityServiceName = "clinicorder.v1.AvailabilityService"

	ListCyclesMethod    = "/" + AvailabilityServiceName + "/ListCycles"
	MonthCalendarMethod = "/" + AvailabilityServiceName + "/MonthCalendar"
)

type callerKey struct{}

func WithCaller(ctx context.Context, caller *core.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) *core.Caller {
	c, _ := ctx.Value(callerKey{}).(*core.Caller)
	return c
}

// AvailabilityServer answers availability queries with google.protobuf.Struct
// messages whose fields mirror the HTTP query parameters.
type AvailabilityServer interface {
	ListCycles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MonthCalendar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var AvailabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: AvailabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListCycles", Handler: unaryHandler(ListCyclesMethod, AvailabilityServer.ListCycles)},
		{MethodName: "MonthCalendar", Handler: unaryHandler(MonthCalendarMethod, AvailabilityServer.MonthCalendar)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinicorder/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&AvailabilityServiceDesc, srv)
}

type unaryFunc func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, fn unaryFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		})
	}
}

type AvailabilityService struct {
	rService reactor.Service
}

func NewAvailabilityService(rService reactor.Service) *AvailabilityService {
	return &AvailabilityService{rService: rService}
}

func (s *AvailabilityService) ListCycles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decode(req)
	if err != nil {
		return nil, err
	}
	if in.ReactorName == "" || in.Date == "" {
		return nil, status.Error(codes.InvalidArgument, "reactor_name and date are required")
	}
	resp, err := s.rService.AvailableCycles(ctx, CallerFromContext(ctx), &reactor.AvailableCyclesReq{
		ReactorName: in.ReactorName,
		Date:        in.Date,
		OrderUUID:   in.OrderUUID,
		Dosage:      in.Dosage,
	})
	if err != nil {
		logger.Warnf(ctx, "AvailabilityService.ListCycles err: %+v", err)
		return nil, toStatus(err)
	}
	return encode(map[string]any{"cycles": resp})
}

func (s *AvailabilityService) MonthCalendar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decode(req)
	if err != nil {
		return nil, err
	}
	if in.ReactorName == "" {
		return nil, status.Error(codes.InvalidArgument, "reactor_name is required")
	}
	resp, err := s.rService.Calendar(ctx, CallerFromContext(ctx), &reactor.CalendarReq{
		ReactorName: in.ReactorName,
		Month:       int(in.Month),
		Year:        int(in.Year),
		From:        in.From,
		To:          in.To,
	})
	if err != nil {
		logger.Warnf(ctx, "AvailabilityService.MonthCalendar err: %+v", err)
		return nil, toStatus(err)
	}
	return encode(resp)
}

// structReq reads the request fields by their wire names. Struct numbers
// are always doubles.
type structReq struct {
	ReactorName string  `json:"reactor_name"`
	Date        string  `json:"date"`
	OrderUUID   string  `json:"order_uuid"`
	Dosage      string  `json:"dosage"`
	Month       float64 `json:"month"`
	Year        float64 `json:"year"`
	From        string  `json:"from"`
	To          string  `json:"to"`
}

func decode(req *structpb.Struct) (*structReq, error) {
	raw, err := req.MarshalJSON()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	in := &structReq{}
	if err := json.Unmarshal(raw, in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return in, nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

var grpcCodes = map[int]codes.Code{
	http.StatusBadRequest:          codes.InvalidArgument,
	http.StatusUnauthorized:        codes.Unauthenticated,
	http.StatusForbidden:           codes.PermissionDenied,
	http.StatusNotFound:            codes.NotFound,
	http.StatusConflict:            codes.Aborted,
	http.StatusUnprocessableEntity: codes.FailedPrecondition,
}

func toStatus(err error) error {
	c := code.From(err)
	gc, ok := grpcCodes[c.HTTPStatus()]
	if !ok {
		gc = codes.Internal
	}
	return status.Error(gc, code.Msg(err))
}
