package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"medregistry.org/internal/obs"
)

// ReadinessChecker is the probe contract shared by /readyz and the gRPC
// health endpoint.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// HealthServer exposes the standard gRPC health protocol so orchestrators that
// speak gRPC probes can track the same readiness signal as /readyz.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	probe  ReadinessChecker
	stop   chan struct{}
}

// NewHealthServer constructs the health endpoint around the shared probe.
func NewHealthServer(probe ReadinessChecker) *HealthServer {
	hs := &HealthServer{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		probe:  probe,
		stop:   make(chan struct{}),
	}
	healthpb.RegisterHealthServer(hs.srv, hs.health)
	return hs
}

// Serve accepts connections on lis and keeps the reported status in sync with
// the probe until Shutdown is called. Blocks like http.Server.Serve.
func (hs *HealthServer) Serve(lis net.Listener) error {
	go hs.watch()
	return hs.srv.Serve(lis)
}

func (hs *HealthServer) watch() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	hs.refresh()
	for {
		select {
		case <-hs.stop:
			return
		case <-ticker.C:
			hs.refresh()
		}
	}
}

func (hs *HealthServer) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := hs.probe.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		obs.SetReady(false)
	} else {
		obs.SetReady(true)
	}
	hs.health.SetServingStatus("", status)
	hs.health.SetServingStatus(serviceName, status)
}

// Shutdown stops the watcher and drains the server.
func (hs *HealthServer) Shutdown() {
	close(hs.stop)
	hs.health.Shutdown()
	hs.srv.GracefulStop()
}
