package server

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
)

// GracefulGRPCServer wraps a grpc.Server with graceful shutdown support.
type GracefulGRPCServer struct {
	server   *grpc.Server
	shutdown *ShutdownManager
}

// NewGracefulGRPCServer creates a new graceful gRPC server. The server is
// stopped with the manager.
func NewGracefulGRPCServer(server *grpc.Server, shutdown *ShutdownManager) *GracefulGRPCServer {
	shutdown.RegisterCloser(&grpcServerCloser{server: server, timeout: 10 * time.Second})
	return &GracefulGRPCServer{server: server, shutdown: shutdown}
}

// Serve accepts connections on lis until shutdown.
func (gs *GracefulGRPCServer) Serve(lis net.Listener) error {
	return gs.server.Serve(lis)
}

// UnaryInterceptor tracks in-flight unary calls and rejects new ones during
// shutdown.
func UnaryInterceptor(sm *ShutdownManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !sm.TrackRequest() {
			return nil, errShuttingDown
		}
		defer sm.UntrackRequest()
		return handler(ctx, req)
	}
}

// grpcServerCloser stops the server gracefully, forcing a stop after timeout.
type grpcServerCloser struct {
	server  *grpc.Server
	timeout time.Duration
}

func (c *grpcServerCloser) Close() error {
	done := make(chan struct{})
	go func() {
		c.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.timeout):
		c.server.Stop()
	}
	return nil
}
