// Package grpchealth serves grpc.health.v1 for orchestrators. The reported
// status follows broker connectivity.
package grpchealth

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the named service reported alongside the overall ("") status
const ServiceName = "smartcamera.hub"

// Checker reports whether the broker connection is usable
type Checker interface {
	BrokerConnected() bool
}

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	checker  Checker
	interval time.Duration
	log      zerolog.Logger

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func New(checker Checker, interval time.Duration, logger zerolog.Logger) *Server {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		checker:  checker,
		interval: interval,
		log:      logger,
		stop:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// Serve publishes the current status, starts polling and blocks serving lis
func (s *Server) Serve(lis net.Listener) error {
	last := s.update(healthpb.HealthCheckResponse_SERVICE_UNKNOWN)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				last = s.update(last)
			}
		}
	}()

	s.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	return s.grpc.Serve(lis)
}

func (s *Server) update(prev healthpb.HealthCheckResponse_ServingStatus) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.checker.BrokerConnected() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	if status == prev {
		return status
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.log.Info().Str("status", status.String()).Msg("Health status changed")
	return status
}

// Stop marks every service NOT_SERVING and stops the server gracefully
func (s *Server) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
}
