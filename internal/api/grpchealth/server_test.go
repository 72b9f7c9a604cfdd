package grpchealth

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type flag struct{ up atomic.Bool }

func (f *flag) BrokerConnected() bool { return f.up.Load() }

func startHealth(t *testing.T, checker Checker) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	srv := New(checker, 10*time.Millisecond, zerolog.Nop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func waitStatus(t *testing.T, client healthpb.HealthClient, service string, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last healthpb.HealthCheckResponse_ServingStatus
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		cancel()
		if err == nil {
			last = resp.GetStatus()
			if last == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status of %q = %v, want %v", service, last, want)
}

func TestHealthFollowsBroker(t *testing.T) {
	f := &flag{}
	client := startHealth(t, f)

	waitStatus(t, client, "", healthpb.HealthCheckResponse_NOT_SERVING)
	waitStatus(t, client, ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	f.up.Store(true)
	waitStatus(t, client, "", healthpb.HealthCheckResponse_SERVING)
	waitStatus(t, client, ServiceName, healthpb.HealthCheckResponse_SERVING)

	f.up.Store(false)
	waitStatus(t, client, ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}
