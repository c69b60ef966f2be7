package grpc

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/memorylane/internal/common"
)

// adminKeyInterceptor guards every admin method with the shared admin key
// sent as metadata. An empty configured key disables the admin API.
func (s *GRPCServer) adminKeyInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
		return handler(ctx, req)
	}

	if len(s.adminKey) == 0 {
		return nil, status.Error(codes.Unauthenticated, "admin api disabled")
	}

	var key string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AdminKeyHeaderName); len(values) > 0 {
			key = values[0]
		}
	}
	if key == "" {
		return nil, status.Error(codes.Unauthenticated, "missing admin key")
	}
	if subtle.ConstantTimeCompare([]byte(key), s.adminKey) != 1 {
		return nil, status.Error(codes.Unauthenticated, "invalid admin key")
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"latency", time.Since(start),
	)
	return resp, err
}
