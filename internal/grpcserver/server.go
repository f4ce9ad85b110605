// Package grpcserver exposes the moderation queue over gRPC.
//
// It delegates all business logic to moderation.Service and handles only
// the transport concerns: credential extraction, error mapping, and
// conversion between domain values and protobuf Structs.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

// Server implements ModerationServer.
type Server struct {
	svc  *moderation.Service
	gate *adminauth.Gate
}

// NewServer constructs a Server backed by svc and gate.
func NewServer(svc *moderation.Service, gate *adminauth.Gate) *Server {
	return &Server{svc: svc, gate: gate}
}

// New builds a grpc.Server with the moderation and health services registered.
func New(s *Server, log *zap.Logger) *grpc.Server {
	if log == nil {
		log = zap.NewNop()
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	gs.RegisterService(&ServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// ListPending returns queue items. Request fields: status (comma-separated),
// limit.
func (s *Server) ListPending(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, ctx, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	statuses, err := moderation.ParseStatusList(stringField(req, "status"))
	if err != nil {
		return nil, toGRPCError(err)
	}
	limit := 0
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
	}

	items, err := s.svc.List(ctx, p, statuses, limit)
	if err != nil {
		return nil, toGRPCError(err)
	}

	list := make([]any, 0, len(items))
	for i := range items {
		m, err := itemToMap(&items[i])
		if err != nil {
			return nil, toGRPCError(err)
		}
		list = append(list, m)
	}
	out, err := structpb.NewStruct(map[string]any{"items": list})
	if err != nil {
		return nil, toGRPCError(err)
	}
	return out, nil
}

// Approve publishes a record. Request fields: id, reviewerNotes.
func (s *Server) Approve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.decide(ctx, req, s.svc.Approve)
}

// Reject withdraws a record. Request fields: id, reviewerNotes.
func (s *Server) Reject(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.decide(ctx, req, s.svc.Reject)
}

func (s *Server) decide(ctx context.Context, req *structpb.Struct,
	fn func(context.Context, adminauth.Principal, string, *string) (moderation.Status, error),
) (*structpb.Struct, error) {
	p, ctx, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	var notes *string
	if v, ok := req.GetFields()["reviewerNotes"]; ok {
		n := v.GetStringValue()
		notes = &n
	}

	st, err := fn(ctx, p, stringField(req, "id"), notes)
	if err != nil {
		return nil, toGRPCError(err)
	}
	out, _ := structpb.NewStruct(map[string]any{"success": true, "status": string(st)})
	return out, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// principal resolves the bearer credential from the authorization metadata.
func (s *Server) principal(ctx context.Context) (adminauth.Principal, context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return adminauth.Principal{}, ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return adminauth.Principal{}, ctx, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	token, _ := adminauth.BearerToken(vals[0])
	p, err := s.gate.Authorize(token)
	if err != nil {
		return adminauth.Principal{}, ctx, toGRPCError(err)
	}
	return p, logger.WithActor(ctx, p.ID), nil
}

func stringField(s *structpb.Struct, name string) string {
	if v, ok := s.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

// itemToMap renders an item with its JSON field names.
func itemToMap(it *moderation.Item) (map[string]any, error) {
	raw, err := json.Marshal(it)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, apperr.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		return status.Error(codes.NotFound, "scholarship not found")
	case errors.Is(err, apperr.ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, apperr.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	}
	return status.Error(codes.Internal, "internal server error")
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		}
		if code == codes.Internal || code == codes.Unknown {
			log.Error("rpc completed", append(fields, zap.Error(err))...)
		} else {
			log.Info("rpc completed", fields...)
		}
		return resp, err
	}
}
