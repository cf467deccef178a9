package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "drsn.recommender.v1.RecommendationService"

	searchMethod    = "/" + ServiceName + "/SearchSimilarProducts"
	recommendMethod = "/" + ServiceName + "/RecommendForProducts"
)

type RecommendationServiceServer interface {
	SearchSimilarProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RecommendForProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc описывает сервис без сгенерированного кода, сообщения имеют тип google.protobuf.Struct.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecommendationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SearchSimilarProducts",
			Handler: unaryHandler(searchMethod, func(srv RecommendationServiceServer) structHandler {
				return srv.SearchSimilarProducts
			}),
		},
		{
			MethodName: "RecommendForProducts",
			Handler: unaryHandler(recommendMethod, func(srv RecommendationServiceServer) structHandler {
				return srv.RecommendForProducts
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "drsn/recommender/v1/recommendation.proto",
}

type structHandler func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, pick func(RecommendationServiceServer) structHandler) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		call := pick(srv.(RecommendationServiceServer))
		if interceptor == nil {
			return call(ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*structpb.Struct))
		})
	}
}

func RegisterRecommendationServiceServer(s grpc.ServiceRegistrar, srv RecommendationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// RecommendationClient — клиент сервиса поверх любого grpc.ClientConnInterface.
type RecommendationClient struct {
	cc grpc.ClientConnInterface
}

func NewRecommendationClient(cc grpc.ClientConnInterface) *RecommendationClient {
	return &RecommendationClient{cc: cc}
}

func (c *RecommendationClient) SearchSimilarProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, searchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecommendationClient) RecommendForProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, recommendMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
