package status

import (
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SyncService is the grpc.health.v1 service name that tracks sync cycles.
// The empty name reports the same status for the whole server.
const SyncService = "opsgenie.agent.Sync"

// GRPCHealth serves grpc.health.v1. Status starts as NOT_SERVING and follows
// SetServing afterwards.
type GRPCHealth struct {
	srv    *grpc.Server
	health *health.Server
}

// NewGRPCHealth returns a health server that has not started listening.
func NewGRPCHealth() *GRPCHealth {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	g := &GRPCHealth{srv: srv, health: hs}
	g.SetServing(false)
	return g
}

// SetServing updates the reported status.
func (g *GRPCHealth) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", st)
	g.health.SetServingStatus(SyncService, st)
}

// Serve accepts connections on lis until Stop is called.
func (g *GRPCHealth) Serve(lis net.Listener) error {
	if err := g.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("status: grpc serve: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.srv.GracefulStop()
}
