package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"smartcamera-hub/internal/config"
	perr "smartcamera-hub/internal/errors"
)

var (
	// ErrGatewayClosed is returned (wrapped) by Publish after Close
	ErrGatewayClosed = errors.New("message gateway is closed")

	// ErrInvalidURL is returned (wrapped) by Connect for a broker url that no
	// retry can fix: empty, malformed or with an unknown scheme
	ErrInvalidURL = errors.New("invalid broker url")
)

// driver is one broker client. Declare must be idempotent, Send must either
// hand the whole message to the client library or nothing at all.
type driver interface {
	Name() string
	Declare(ctx context.Context, exchange string) error
	Send(ctx context.Context, msg *BrokerMessage) error
	IsOpen() bool
	// Close closes channel then connection, best-effort
	Close() error
}

type dialFunc func(ctx context.Context, rawURL string, opts Options) (driver, error)

var drivers = map[string]dialFunc{
	"amqp":  dialAMQP,
	"amqps": dialAMQP,
	"nats":  dialNATS,
	"tls":   dialNATS,
	"kafka": dialKafka,
}

// Options tune connection behaviour; zero values fall back to defaults
type Options struct {
	ClientName       string
	ConnectTimeout   time.Duration
	Heartbeat        time.Duration
	BackoffMin       time.Duration
	BackoffMax       time.Duration
	KafkaPartitions  int32
	KafkaReplication int16
	Logger           zerolog.Logger
}

// OptionsFromConfig maps the broker section of the service configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ClientName:       cfg.InstanceID,
		ConnectTimeout:   cfg.BrokerConnectTimeout,
		Heartbeat:        cfg.BrokerHeartbeat,
		BackoffMin:       cfg.BrokerBackoffMin,
		BackoffMax:       cfg.BrokerBackoffMax,
		KafkaPartitions:  cfg.KafkaPartitions,
		KafkaReplication: cfg.KafkaReplication,
		Logger:           log.With().Str("service", "gateway").Logger(),
	}
}

func (o Options) withDefaults() Options {
	if o.ClientName == "" {
		o.ClientName = "smartcamera-hub"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 60 * time.Second
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = time.Second
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = 30 * o.BackoffMin
	}
	if o.KafkaPartitions <= 0 {
		o.KafkaPartitions = 1
	}
	if o.KafkaReplication <= 0 {
		o.KafkaReplication = 1
	}
	return o
}

// Gateway publishes domain events to a topic-structured broker. It is safe for
// concurrent use; the driver serializes access to its channel handle.
type Gateway struct {
	drv    driver
	log    zerolog.Logger
	now    func() time.Time
	closed atomic.Bool
	once   sync.Once
}

// Connect dials the broker named by rawURL. The scheme selects the driver.
func Connect(ctx context.Context, rawURL string, opts Options) (*Gateway, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.FromContext(err, "connect")
	}
	rawURL = strings.TrimSpace(rawURL)
	dial, err := driverFor(rawURL)
	if err != nil {
		return nil, perr.WithOp(err, "gateway.connect")
	}

	opts = opts.withDefaults()
	opts.Logger.Info().Str("url", redact(rawURL)).Msg("Attempting to connect to broker")

	drv, err := dial(ctx, rawURL, opts)
	if err != nil {
		opts.Logger.Error().Err(err).Str("url", redact(rawURL)).Msg("Failed to connect to broker")
		if perr.IsCode(err, perr.ErrorCodeCanceled) {
			return nil, err
		}
		return nil, perr.WithOp(perr.Wrap(err, perr.ErrorCodeConnection, "broker connection failed"), "gateway.connect")
	}

	opts.Logger.Info().Str("driver", drv.Name()).Msg("Broker connection and publishing channel established")
	return newGateway(drv, opts.Logger), nil
}

func driverFor(rawURL string) (dialFunc, error) {
	if rawURL == "" {
		return nil, perr.Wrap(ErrInvalidURL, perr.ErrorCodeConnection, "broker url cannot be empty")
	}
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok || scheme == "" || rest == "" {
		return nil, perr.Wrapf(ErrInvalidURL, perr.ErrorCodeConnection, "malformed broker url %q", redact(rawURL))
	}
	dial, ok := drivers[strings.ToLower(scheme)]
	if !ok {
		return nil, perr.Wrapf(ErrInvalidURL, perr.ErrorCodeConnection, "unsupported broker scheme %q", scheme)
	}
	return dial, nil
}

func newGateway(drv driver, logger zerolog.Logger) *Gateway {
	return &Gateway{drv: drv, log: logger, now: time.Now}
}

// Publish declares exchange (topic, durable, no auto-delete) and sends payload
// as persistent JSON under routingKey.
func (g *Gateway) Publish(ctx context.Context, exchange, routingKey string, payload any) error {
	msg, err := NewMessage(exchange, routingKey, payload, g.now())
	if err != nil {
		return err
	}
	if g.closed.Load() {
		return perr.WithOp(perr.Wrap(perr.Wrap(ErrGatewayClosed, perr.ErrorCodeConnection, "gateway closed"), perr.ErrorCodePublish, "publish rejected"), "gateway.publish")
	}
	if err := ctx.Err(); err != nil {
		return perr.FromContext(err, "publish")
	}
	if !g.drv.IsOpen() {
		return g.fail(msg, perr.Connectionf("%s connection is not open", g.drv.Name()))
	}

	if err := g.drv.Declare(ctx, exchange); err != nil {
		return g.fail(msg, err)
	}
	if err := ctx.Err(); err != nil {
		return perr.FromContext(err, "publish")
	}
	if err := g.drv.Send(ctx, msg); err != nil {
		return g.fail(msg, err)
	}

	g.log.Debug().
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Str("message_id", msg.ID).
		Int("bytes", len(msg.Body)).
		Msg("Message published")
	return nil
}

func (g *Gateway) fail(msg *BrokerMessage, err error) error {
	if perr.IsCode(err, perr.ErrorCodeCanceled) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return perr.FromContext(err, "publish")
	}
	g.log.Error().
		Err(err).
		Str("exchange", msg.Exchange).
		Str("routing_key", msg.RoutingKey).
		Msg("Failed to publish message")
	return perr.WithOp(perr.Wrapf(err, perr.ErrorCodePublish, "publish to %s/%s failed", msg.Exchange, msg.RoutingKey), "gateway.publish")
}

// IsConnected reports whether the connection and channel are open and the
// gateway has not been closed
func (g *Gateway) IsConnected() bool {
	return g != nil && !g.closed.Load() && g.drv.IsOpen()
}

// Driver returns the active driver name (amqp, nats, kafka)
func (g *Gateway) Driver() string { return g.drv.Name() }

// Close tears the gateway down. Close failures are logged, never returned.
func (g *Gateway) Close() error {
	g.once.Do(func() {
		g.closed.Store(true)
		g.log.Info().Msg("Closing message gateway")
		if err := g.drv.Close(); err != nil {
			g.log.Warn().Err(err).Msg("Error while closing broker resources")
			return
		}
		g.log.Info().Msg("Message gateway closed")
	})
	return nil
}

// Shutdown matches the service container lifecycle
func (g *Gateway) Shutdown(ctx context.Context) error { return g.Close() }

// dialAsync runs a blocking client constructor and honours ctx. If ctx ends
// first the late result is closed in the background.
func dialAsync[T any](ctx context.Context, op string, dial func() (T, error), closeFn func(T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := dial()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				closeFn(r.v)
			}
		}()
		var zero T
		return zero, perr.FromContext(ctx.Err(), op)
	}
}

// redact hides credentials in a broker url for logging
func redact(rawURL string) string {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return rawURL
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
