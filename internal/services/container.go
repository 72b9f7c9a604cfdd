package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"smartcamera-hub/internal/config"
	"smartcamera-hub/internal/logging"
	"smartcamera-hub/internal/services/broadcast"
	"smartcamera-hub/internal/services/ingest"
	"smartcamera-hub/internal/services/messaging"
	"smartcamera-hub/internal/services/postprocessing/alerts"
)

// ConnectFunc dials the broker; replaced in tests
type ConnectFunc func(ctx context.Context, rawURL string, opts messaging.Options) (*messaging.Gateway, error)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config *config.Config
	Hub    *broadcast.Hub
	Policy *alerts.Policy
	Ingest *ingest.Service

	gwMu    sync.RWMutex
	gateway *messaging.Gateway

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewServiceContainer creates the hub, alert policy and ingest coordinator and
// connects the message gateway. With BrokerOptional a failed first connect is
// retried in the background while the rest of the service runs. A broker url
// the gateway cannot parse always fails startup.
func NewServiceContainer(ctx context.Context, cfg *config.Config) (*ServiceContainer, error) {
	return newServiceContainer(ctx, cfg, messaging.Connect)
}

func newServiceContainer(ctx context.Context, cfg *config.Config, connect ConnectFunc) (*ServiceContainer, error) {
	hub := broadcast.NewHub(logging.NewServiceLogger(cfg, "hub"))
	policy := alerts.NewPolicy()

	ingestSvc, err := ingest.NewService(cfg.BrokerExchange, nil, hub, policy, logging.NewServiceLogger(cfg, "ingest"))
	if err != nil {
		return nil, err
	}

	bg, cancel := context.WithCancel(context.Background())
	sc := &ServiceContainer{
		Config: cfg,
		Hub:    hub,
		Policy: policy,
		Ingest: ingestSvc,
		cancel: cancel,
		log:    logging.NewServiceLogger(cfg, "container"),
	}

	opts := messaging.OptionsFromConfig(cfg)
	gw, err := connect(ctx, cfg.BrokerURL, opts)
	switch {
	case err == nil:
		sc.attach(gw)
	case errors.Is(err, messaging.ErrInvalidURL):
		cancel()
		return nil, err
	case cfg.BrokerOptional && !errors.Is(ctx.Err(), context.Canceled):
		sc.log.Warn().Err(err).Msg("Broker unavailable at startup, retrying in background")
		sc.wg.Add(1)
		go sc.connectLoop(bg, connect, opts)
	default:
		cancel()
		return nil, err
	}

	log.Info().
		Str("exchange", cfg.BrokerExchange).
		Strs("rules", policy.Rules()).
		Bool("broker_connected", sc.BrokerConnected()).
		Msg("Services initialized")
	return sc, nil
}

func (sc *ServiceContainer) attach(gw *messaging.Gateway) {
	sc.gwMu.Lock()
	sc.gateway = gw
	sc.gwMu.Unlock()
	sc.Ingest.SetGateway(gw)
}

func (sc *ServiceContainer) connectLoop(ctx context.Context, connect ConnectFunc, opts messaging.Options) {
	defer sc.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = sc.Config.BrokerBackoffMin
	b.MaxInterval = sc.Config.BrokerBackoffMax
	b.MaxElapsedTime = 0

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, sc.Config.BrokerConnectTimeout)
		defer cancel()
		gw, err := connect(attemptCtx, sc.Config.BrokerURL, opts)
		if errors.Is(err, messaging.ErrInvalidURL) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			_ = gw.Close()
			return backoff.Permanent(ctx.Err())
		}
		sc.attach(gw)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		sc.log.Debug().Err(err).Dur("retry_in", wait).Msg("Broker still unavailable")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		if ctx.Err() == nil {
			sc.log.Error().Err(err).Msg("Broker reconnect abandoned")
		}
		return
	}
	sc.log.Info().Msg("Broker connected")
}

// Gateway returns the message gateway, or nil while the broker is unreachable
func (sc *ServiceContainer) Gateway() *messaging.Gateway {
	sc.gwMu.RLock()
	defer sc.gwMu.RUnlock()
	return sc.gateway
}

// BrokerConnected reports whether the gateway exists and is connected
func (sc *ServiceContainer) BrokerConnected() bool {
	return sc.Gateway().IsConnected()
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.cancel()
	sc.wg.Wait()

	var errs []error
	if err := sc.Hub.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if gw := sc.Gateway(); gw != nil {
		if err := gw.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
