package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/memorylane/internal/common"
	gs "github.com/dmitrijs2005/memorylane/internal/server/grpc"
)

// SweepSummary is the client-side view of one unlock sweep.
type SweepSummary struct {
	Skipped  bool
	Boundary string
	Capsules []SweptCapsule
}

type SweptCapsule struct {
	ID         string
	Title      string
	Recipients int
	Failed     int
	MarkedSent bool
}

// AdminClient calls the admin gRPC API with the admin key attached to every
// request.
type AdminClient struct {
	conn   *grpc.ClientConn
	client *gs.AdminClient
	key    string
}

func withAdminKey(ctx context.Context, key string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AdminKeyHeaderName, key)
	return metadata.NewOutgoingContext(ctx, md)
}

func (a *AdminClient) adminKeyInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	err := invoker(withAdminKey(ctx, a.key), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, status.Convert(err).Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, status.Convert(err).Message())
	}
	return err
}

// NewAdminClient prepares a connection to addr. No I/O happens until the
// first call.
func NewAdminClient(addr, key string, opts ...grpc.DialOption) (*AdminClient, error) {
	a := &AdminClient{key: key}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(a.adminKeyInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	a.client = gs.NewAdminClient(conn)
	return a, nil
}

func (a *AdminClient) Close() error {
	return a.conn.Close()
}

// Ping returns the server status string.
func (a *AdminClient) Ping(ctx context.Context) (string, error) {
	resp, err := a.client.Ping(ctx)
	if err != nil {
		return "", err
	}
	return resp.GetFields()["status"].GetStringValue(), nil
}

// TriggerUnlocks runs one unlock sweep on the server.
func (a *AdminClient) TriggerUnlocks(ctx context.Context) (*SweepSummary, error) {
	resp, err := a.client.TriggerUnlocks(ctx)
	if err != nil {
		return nil, err
	}

	f := resp.GetFields()
	out := &SweepSummary{
		Skipped:  f["skipped"].GetBoolValue(),
		Boundary: f["boundary"].GetStringValue(),
	}
	for _, v := range f["capsules"].GetListValue().GetValues() {
		c := v.GetStructValue().GetFields()
		out.Capsules = append(out.Capsules, SweptCapsule{
			ID:         c["id"].GetStringValue(),
			Title:      c["title"].GetStringValue(),
			Recipients: int(c["recipients"].GetNumberValue()),
			Failed:     int(c["failed"].GetNumberValue()),
			MarkedSent: c["markedSent"].GetBoolValue(),
		})
	}
	return out, nil
}
