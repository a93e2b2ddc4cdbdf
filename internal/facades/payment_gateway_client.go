package facades

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "json"

// jsonCodec lets the gateway contract travel as JSON over gRPC without generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const (
	paymentGatewayService          = "escrow.v1.PaymentGateway"
	paymentGatewayAuthorizeAndHold = "/" + paymentGatewayService + "/AuthorizeAndHold"
	paymentGatewayCaptureHeld      = "/" + paymentGatewayService + "/CaptureHeld"
	paymentGatewayRefundHeld       = "/" + paymentGatewayService + "/RefundHeld"
)

// AuthorizeRequest asks the gateway to hold an amount on the payer's method.
type AuthorizeRequest struct {
	Amount   string `json:"amount"`
	PayerRef string `json:"payer_ref"`
}

// AuthorizeResponse carries the reference of the created hold.
type AuthorizeResponse struct {
	HoldRef string `json:"hold_ref"`
}

// HoldRequest identifies a hold to capture or refund.
type HoldRequest struct {
	HoldRef string `json:"hold_ref"`
}

// SettlementResponse confirms a capture or refund.
type SettlementResponse struct {
	Reference   string    `json:"reference"`
	HoldRef     string    `json:"hold_ref"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

// PaymentGatewayClient is the client API of the escrow.v1.PaymentGateway service.
type PaymentGatewayClient interface {
	AuthorizeAndHold(ctx context.Context, in *AuthorizeRequest, opts ...grpc.CallOption) (*AuthorizeResponse, error)
	CaptureHeld(ctx context.Context, in *HoldRequest, opts ...grpc.CallOption) (*SettlementResponse, error)
	RefundHeld(ctx context.Context, in *HoldRequest, opts ...grpc.CallOption) (*SettlementResponse, error)
}

type paymentGatewayClient struct {
	cc grpc.ClientConnInterface
}

// NewPaymentGatewayClient creates a client on top of a gRPC connection.
func NewPaymentGatewayClient(cc grpc.ClientConnInterface) PaymentGatewayClient {
	return &paymentGatewayClient{cc: cc}
}

func (c *paymentGatewayClient) AuthorizeAndHold(ctx context.Context, in *AuthorizeRequest, opts ...grpc.CallOption) (*AuthorizeResponse, error) {
	out := new(AuthorizeResponse)
	if err := c.cc.Invoke(ctx, paymentGatewayAuthorizeAndHold, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentGatewayClient) CaptureHeld(ctx context.Context, in *HoldRequest, opts ...grpc.CallOption) (*SettlementResponse, error) {
	out := new(SettlementResponse)
	if err := c.cc.Invoke(ctx, paymentGatewayCaptureHeld, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *paymentGatewayClient) RefundHeld(ctx context.Context, in *HoldRequest, opts ...grpc.CallOption) (*SettlementResponse, error) {
	out := new(SettlementResponse)
	if err := c.cc.Invoke(ctx, paymentGatewayRefundHeld, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
}

// PaymentGatewayServer is the server API of the escrow.v1.PaymentGateway service.
type PaymentGatewayServer interface {
	AuthorizeAndHold(ctx context.Context, in *AuthorizeRequest) (*AuthorizeResponse, error)
	CaptureHeld(ctx context.Context, in *HoldRequest) (*SettlementResponse, error)
	RefundHeld(ctx context.Context, in *HoldRequest) (*SettlementResponse, error)
}

// RegisterPaymentGatewayServer registers srv on s.
func RegisterPaymentGatewayServer(s grpc.ServiceRegistrar, srv PaymentGatewayServer) {
	s.RegisterService(&paymentGatewayServiceDesc, srv)
}

var paymentGatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: paymentGatewayService,
	HandlerType: (*PaymentGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AuthorizeAndHold",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(AuthorizeRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req any) (any, error) {
					return srv.(PaymentGatewayServer).AuthorizeAndHold(ctx, req.(*AuthorizeRequest))
				}
				if interceptor == nil {
					return call(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: paymentGatewayAuthorizeAndHold}
				return interceptor(ctx, in, info, call)
			},
		},
		{
			MethodName: "CaptureHeld",
			Handler:    holdHandler(paymentGatewayCaptureHeld, PaymentGatewayServer.CaptureHeld),
		},
		{
			MethodName: "RefundHeld",
			Handler:    holdHandler(paymentGatewayRefundHeld, PaymentGatewayServer.RefundHeld),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func holdHandler(
	fullMethod string,
	method func(PaymentGatewayServer, context.Context, *HoldRequest) (*SettlementResponse, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(HoldRequest)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			return method(srv.(PaymentGatewayServer), ctx, req.(*HoldRequest))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, call)
	}
}
