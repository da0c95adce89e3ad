package grpc_control

import (
	"context"

	"market-plant/src/models"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------
// Hand-written service descriptor for MarketPlantService
// -----------------------------------------------------------------------------

const (
	serviceName               = "marketplant.v1.MarketPlantService"
	streamUpdatesMethod       = "/" + serviceName + "/StreamUpdates"
	updateSubscriptionsMethod = "/" + serviceName + "/UpdateSubscriptions"
)

// -----------------------------------------------------------------------------

// MarketPlantServer is the server API for MarketPlantService.
type MarketPlantServer interface {
	// StreamUpdates opens a server stream: one init frame carrying the
	// subscriber identity, then snapshots and incremental updates until the
	// stream is cancelled or the subscription set empties.
	StreamUpdates(*SubscriptionRequest, MarketPlant_StreamUpdatesServer) error

	// UpdateSubscriptions mutates a live subscriber's subscription set.
	UpdateSubscriptions(context.Context, *UpdateRequest) (*Ack, error)
}

// -----------------------------------------------------------------------------

// MarketPlant_StreamUpdatesServer is the send side of the update stream.
type MarketPlant_StreamUpdatesServer interface {
	Send(*models.MStreamResponse) error
	grpc.ServerStream
}

type marketPlantStreamUpdatesServer struct {
	grpc.ServerStream
}

func (x *marketPlantStreamUpdatesServer) Send(m *models.MStreamResponse) error {
	return x.ServerStream.SendMsg(m)
}

// -----------------------------------------------------------------------------

func _MarketPlant_StreamUpdates_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(SubscriptionRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MarketPlantServer).StreamUpdates(in, &marketPlantStreamUpdatesServer{stream})
}

func _MarketPlant_UpdateSubscriptions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketPlantServer).UpdateSubscriptions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: updateSubscriptionsMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketPlantServer).UpdateSubscriptions(ctx, req.(*UpdateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

// MarketPlantServiceDesc wires the handlers into the gRPC runtime.
var MarketPlantServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MarketPlantServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "UpdateSubscriptions",
			Handler:    _MarketPlant_UpdateSubscriptions_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamUpdates",
			Handler:       _MarketPlant_StreamUpdates_Handler,
			ServerStreams: true,
		},
	},
}

// RegisterMarketPlantServer registers the service implementation.
func RegisterMarketPlantServer(s grpc.ServiceRegistrar, srv MarketPlantServer) {
	s.RegisterService(&MarketPlantServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// MarketPlantClient is the client API for MarketPlantService.
type MarketPlantClient struct {
	cc *grpc.ClientConn
}

// NewMarketPlantClient wraps an established connection. Calls request the
// serializer codec by content-subtype; no dial option is required.
func NewMarketPlantClient(cc *grpc.ClientConn) *MarketPlantClient {
	return &MarketPlantClient{cc: cc}
}

// -----------------------------------------------------------------------------

// MarketPlant_StreamUpdatesClient is the receive side of the update stream.
type MarketPlant_StreamUpdatesClient interface {
	Recv() (*models.MStreamResponse, error)
	grpc.ClientStream
}

type marketPlantStreamUpdatesClient struct {
	grpc.ClientStream
}

func (x *marketPlantStreamUpdatesClient) Recv() (*models.MStreamResponse, error) {
	m := new(models.MStreamResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// -----------------------------------------------------------------------------

// StreamUpdates opens the server stream for the given subscription.
func (c *MarketPlantClient) StreamUpdates(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (MarketPlant_StreamUpdatesClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &MarketPlantServiceDesc.Streams[0], streamUpdatesMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &marketPlantStreamUpdatesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// -----------------------------------------------------------------------------

// UpdateSubscriptions issues the unary control-plane call.
func (c *MarketPlantClient) UpdateSubscriptions(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*Ack, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(Ack)
	if err := c.cc.Invoke(ctx, updateSubscriptionsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
