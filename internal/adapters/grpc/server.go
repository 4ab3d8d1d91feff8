package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dealspot/redemption-engine/internal/application"
	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/ports"
)

// RedemptionInternalService is the service-to-service surface. Sibling
// services use it to validate customer tokens and to pre-check deal access
// before rendering claim actions.
type RedemptionInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckAccess(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type RedemptionInternalServer struct {
	service *application.Service
	tokens  ports.TokenSigner
}

func NewRedemptionInternalServer(service *application.Service, tokens ports.TokenSigner) *RedemptionInternalServer {
	return &RedemptionInternalServer{service: service, tokens: tokens}
}

func Register(server grpc.ServiceRegistrar, svc RedemptionInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "dealspot.redemption.v1.RedemptionInternalService",
		HandlerType: (*RedemptionInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    structHandler(svc, "ValidateToken", RedemptionInternalService.ValidateToken),
			},
			{
				MethodName: "CheckAccess",
				Handler:    structHandler(svc, "CheckAccess", RedemptionInternalService.CheckAccess),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "dealspot/contracts/proto/redemption/v1/redemption_internal.proto",
	}, svc)
}

func (s *RedemptionInternalServer) ValidateToken(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "token")
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.tokens.ParseAndValidate(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"user_id":    claims.UserID.String(),
		"tier":       claims.Tier,
		"expires_at": claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *RedemptionInternalServer) CheckAccess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "token")
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}
	dealID, err := uuid.Parse(stringField(req, "deal_id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid deal_id")
	}

	claims, err := s.tokens.ParseAndValidate(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	allowed, reason, err := s.service.CheckAccess(ctx, domain.ParseTier(claims.Tier), dealID)
	if err != nil {
		if !errors.Is(err, domain.ErrDealNotFound) {
			return nil, status.Errorf(codes.Internal, "check access: %v", err)
		}
		allowed, reason = false, "deal_not_found"
	}

	resp, err := structpb.NewStruct(map[string]any{
		"allowed": allowed,
		"reason":  reason,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func stringField(req *structpb.Struct, key string) string {
	val := req.GetFields()[key]
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

func structHandler(svc RedemptionInternalService, method string, call func(RedemptionInternalService, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/dealspot.redemption.v1.RedemptionInternalService/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(svc, ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(svc, ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
