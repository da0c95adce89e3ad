package grpc_control

import (
	"context"
	"fmt"
	"net"

	"market-plant/src/config"
	"market-plant/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// -----------------------------------------------------------------------------

// maxRPCMessageBytes bounds one frame in either direction. The largest frame
// is a depth-bounded snapshot — a handful of bytes per level, kilobytes even
// at extreme depth — so 1 MiB leaves orders of magnitude of headroom without
// letting a misbehaving peer stream arbitrary payloads.
const maxRPCMessageBytes = 1 << 20

// -----------------------------------------------------------------------------

// GRPCService owns the RPC listener. Everything is registered at
// construction; Start only serves, and done closes when the serve loop has
// fully exited, mirroring how the feed and simulator track their lifecycle.
type GRPCService struct {
	server   *grpc.Server
	listener net.Listener
	logger   *logger.Logger

	done chan struct{}
}

// -----------------------------------------------------------------------------

// NewGRPCService binds the control address and registers the plant service
// plus the health probe. A bind failure here is fatal to the caller.
func NewGRPCService(cfg *config.Config, lg *logger.Logger, service *MarketPlantService) (*GRPCService, error) {
	listener, err := net.Listen("tcp", cfg.GRPCAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddress(), err)
	}

	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxRPCMessageBytes),
		grpc.MaxSendMsgSize(maxRPCMessageBytes),
	)

	RegisterMarketPlantServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCService{
		server:   server,
		listener: listener,
		logger:   lg,
		done:     make(chan struct{}),
	}, nil
}

// -----------------------------------------------------------------------------

// Start serves until Stop is called. Blocking; run it on its own goroutine.
func (g *GRPCService) Start() error {
	defer close(g.done)

	g.logger.Info("gRPC service listening on %s", g.listener.Addr())

	if err := g.server.Serve(g.listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop drains the server: graceful while the context allows, hard stop once
// it expires (streaming subscribers only unblock on their next poll, so a
// deadline is what actually ends them). Returns after the serve loop exits.
func (g *GRPCService) Stop(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		g.logger.Warning("gRPC shutdown deadline reached, forcing stop")
		g.server.Stop()
	case <-stopped:
	}

	<-g.done
	g.logger.Info("gRPC service stopped")
	return nil
}
