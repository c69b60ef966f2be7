// Package grpc exposes the operator-facing admin API: a liveness ping and a
// manual trigger for the unlock sweep.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

// UnlockTrigger runs one unlock sweep.
type UnlockTrigger interface {
	TriggerUnlocks(ctx context.Context) (*services.UnlockReport, error)
}

// Pinger checks a backing dependency, usually the database.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	unlocks  UnlockTrigger
	pinger   Pinger
	logger   logging.Logger
	adminKey []byte
}

func NewGRPCServer(address string, l logging.Logger, unlocks UnlockTrigger, pinger Pinger, adminKey string) *GRPCServer {
	return &GRPCServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		unlocks:  unlocks,
		pinger:   pinger,
		adminKey: []byte(adminKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.adminKeyInterceptor))
	RegisterAdminServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			s.logger.Error(ctx, "database ping failed", "error", err)
			return nil, status.Error(codes.Unavailable, "database unavailable")
		}
	}
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

func (s *GRPCServer) TriggerUnlocks(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := s.unlocks.TriggerUnlocks(ctx)
	if err != nil {
		s.logger.Error(ctx, "unlock sweep failed", "error", err)
		return nil, status.Error(codes.Internal, "unlock sweep failed")
	}
	return reportToStruct(report)
}

func reportToStruct(r *services.UnlockReport) (*structpb.Struct, error) {
	capsules := make([]any, 0, len(r.Capsules))
	for _, c := range r.Capsules {
		capsules = append(capsules, map[string]any{
			"id":         c.ID,
			"title":      c.Title,
			"recipients": len(c.Recipients),
			"failed":     len(c.Failed),
			"markedSent": c.MarkedSent,
		})
	}
	m := map[string]any{
		"skipped":  r.Skipped,
		"capsules": capsules,
	}
	if !r.Boundary.IsZero() {
		m["boundary"] = r.Boundary.Format(time.RFC3339)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding report")
	}
	return out, nil
}
