package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/logging"
)

func newTestServer(adminKey string) *GRPCServer {
	return NewGRPCServer("", logging.NopLogger{}, nil, nil, adminKey)
}

func okHandler(called *bool) grpc.UnaryHandler {
	return func(ctx context.Context, req any) (any, error) {
		*called = true
		return "ok", nil
	}
}

func TestAdminKeyInterceptor_OtherServicePassesThrough(t *testing.T) {
	s := newTestServer("secret")
	called := false

	resp, err := s.adminKeyInterceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler(&called))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || resp != "ok" {
		t.Fatalf("handler not called, resp=%v", resp)
	}
}

func TestAdminKeyInterceptor(t *testing.T) {
	cases := []struct {
		name     string
		adminKey string
		sent     string
		code     codes.Code
	}{
		{"valid key", "secret", "secret", codes.OK},
		{"missing key", "secret", "", codes.Unauthenticated},
		{"wrong key", "secret", "guess", codes.Unauthenticated},
		{"admin api disabled", "", "anything", codes.Unauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(tc.adminKey)
			ctx := context.Background()
			if tc.sent != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(common.AdminKeyHeaderName, tc.sent))
			}
			called := false

			_, err := s.adminKeyInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: TriggerUnlocksMethod}, okHandler(&called))
			if got := status.Code(err); got != tc.code {
				t.Fatalf("code = %v, want %v (err=%v)", got, tc.code, err)
			}
			if called != (tc.code == codes.OK) {
				t.Fatalf("handler called = %v", called)
			}
		})
	}
}
