package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"vanrent/internal/models"
	"vanrent/internal/pricing"
	"vanrent/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// QuoteService messages are google.protobuf.Struct values carrying the same
// JSON documents as the HTTP API, so no generated stubs are needed.
const (
	quoteServiceName       = "vanrent.quote.v1.QuoteService"
	methodGetQuote         = "/" + quoteServiceName + "/GetQuote"
	methodListSlots        = "/" + quoteServiceName + "/ListSlots"
	methodValidateDiscount = "/" + quoteServiceName + "/ValidateDiscount"
)

type QuoteServer interface {
	GetQuote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ValidateDiscount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var quoteServiceDesc = grpc.ServiceDesc{
	ServiceName: quoteServiceName,
	HandlerType: (*QuoteServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetQuote", Handler: unaryHandler(methodGetQuote, QuoteServer.GetQuote)},
		{MethodName: "ListSlots", Handler: unaryHandler(methodListSlots, QuoteServer.ListSlots)},
		{MethodName: "ValidateDiscount", Handler: unaryHandler(methodValidateDiscount, QuoteServer.ValidateDiscount)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterQuoteServiceServer attaches srv to s.
func RegisterQuoteServiceServer(s grpc.ServiceRegistrar, srv QuoteServer) {
	s.RegisterService(&quoteServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(QuoteServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(QuoteServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(QuoteServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// QuoteClient calls QuoteService.
type QuoteClient struct {
	cc grpc.ClientConnInterface
}

func NewQuoteClient(cc grpc.ClientConnInterface) *QuoteClient {
	return &QuoteClient{cc: cc}
}

func (c *QuoteClient) GetQuote(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetQuote, in, opts...)
}

func (c *QuoteClient) ListSlots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListSlots, in, opts...)
}

func (c *QuoteClient) ValidateDiscount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodValidateDiscount, in, opts...)
}

func (c *QuoteClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type quoteService struct {
	bookings Bookings
}

func newQuoteService(bookings Bookings) *quoteService {
	return &quoteService{bookings: bookings}
}

func (s *quoteService) GetQuote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body quoteBody
	if err := fromStruct(in, &body); err != nil {
		return nil, err
	}
	req, err := body.request(s.bookings.Location())
	if err != nil {
		return nil, grpcError(err)
	}

	result, err := s.bookings.Quote(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	if result.Kind == pricing.ResultConfigError {
		return nil, status.Errorf(codes.Internal, "pricing unavailable: %s", result.Detail)
	}
	return toStruct(result)
}

type slotsBody struct {
	Office      string `json:"office"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Side        string `json:"side"`
	ChosenStart string `json:"chosenStart"`
}

func (s *quoteService) ListSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body slotsBody
	if err := fromStruct(in, &body); err != nil {
		return nil, err
	}

	loc := s.bookings.Location()
	date, err := time.ParseInLocation(models.DateFormat, strings.TrimSpace(body.Date), loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid date format; expected YYYY-MM-DD")
	}
	chosenStart, err := parseTimestamp(body.ChosenStart, loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid chosenStart")
	}
	side := strings.TrimSpace(body.Side)
	if side == "" {
		side = models.SidePickup
	}

	resp, err := s.bookings.AvailableSlots(ctx, service.SlotsRequest{
		OfficeID:    strings.TrimSpace(body.Office),
		CategoryID:  strings.TrimSpace(body.Category),
		Date:        date,
		Side:        side,
		ChosenStart: chosenStart,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(resp)
}

func (s *quoteService) ValidateDiscount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body service.DiscountRequest
	if err := fromStruct(in, &body); err != nil {
		return nil, err
	}

	elig, err := s.bookings.CheckDiscount(ctx, body)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(elig)
}

func fromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
