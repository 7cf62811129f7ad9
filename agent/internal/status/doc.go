// Package status exposes the agent's own health on optional local listeners.
//
// Tracker keeps the outcome of the last 20 cycles and derives a state:
//
//	healthy   >= 85% of tracked cycles succeeded
//	degraded  >= 60%
//	critical  below 60%
//	unknown   no cycle has finished yet
//
// Handler serves JSON under /api/v1 (health, alerts, alerts/{id}), the
// Prometheus text exposition on /metrics and the notification WebSocket on
// /ws/notifications. GRPCHealth reports the same verdict through the
// standard grpc.health.v1 service.
package status
