package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// New returns a gRPC server with the index service and the standard health
// service registered.
func New(svc IndexServiceServer, log logrus.FieldLogger) *grpc.Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	RegisterIndexServiceServer(s, svc)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}

// Serve runs s on lis until ctx is done, then stops gracefully.
func Serve(ctx context.Context, s *grpc.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()
	select {
	case <-ctx.Done():
		s.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Client calls salinity.v1.IndexService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ComputeIndices(ctx context.Context, req Request, opts ...grpc.CallOption) (*Response, error) {
	in, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("server: encoding request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, computeIndicesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return DecodeResponse(out)
}
