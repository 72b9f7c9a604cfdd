package messaging

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	perr "smartcamera-hub/internal/errors"
)

// natsDriver maps exchanges onto JetStream streams. Each exchange becomes a
// file-backed stream capturing "<exchange>.>", and routing keys become the
// subject suffix.
type natsDriver struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	declared sync.Map
}

func dialNATS(ctx context.Context, rawURL string, opts Options) (driver, error) {
	log := opts.Logger

	connect := func() (*nats.Conn, error) {
		return nats.Connect(rawURL,
			nats.Name(opts.ClientName),
			nats.Timeout(opts.ConnectTimeout),
			nats.PingInterval(opts.Heartbeat),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(opts.BackoffMin),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warn().Err(err).Msg("NATS disconnected")
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Str("url", redact(nc.ConnectedUrl())).Msg("NATS reconnected")
			}),
			nats.ClosedHandler(func(_ *nats.Conn) {
				log.Info().Msg("NATS connection closed")
			}),
		)
	}

	nc, err := dialAsync(ctx, "connect", connect, func(nc *nats.Conn) { nc.Close() })
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeCanceled) {
			return nil, err
		}
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "nats connect failed")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "jetstream context failed")
	}
	return &natsDriver{nc: nc, js: js}, nil
}

func (d *natsDriver) Name() string { return "nats" }

func (d *natsDriver) Declare(ctx context.Context, exchange string) error {
	name := streamName(exchange)
	if _, ok := d.declared.Load(name); ok {
		return nil
	}

	_, err := d.js.Stream(ctx, name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = d.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      name,
			Subjects:  []string{exchange + ".>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
		})
		if errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			err = nil
		}
	}
	if err != nil {
		return classifyNATS(err, "stream declare failed")
	}

	d.declared.Store(name, struct{}{})
	return nil
}

func (d *natsDriver) Send(ctx context.Context, msg *BrokerMessage) error {
	m := nats.NewMsg(msg.Exchange + "." + msg.RoutingKey)
	m.Data = msg.Body
	m.Header.Set("Content-Type", msg.ContentType)
	m.Header.Set("Timestamp", strconv.FormatInt(msg.Unix(), 10))

	if _, err := d.js.PublishMsg(ctx, m, jetstream.WithMsgID(msg.ID)); err != nil {
		return d.sendFailed(msg.Exchange, err)
	}
	return nil
}

// sendFailed forgets a declared stream that no longer answers, so the next
// publish declares it again.
func (d *natsDriver) sendFailed(exchange string, err error) error {
	if errors.Is(err, jetstream.ErrNoStreamResponse) || errors.Is(err, jetstream.ErrStreamNotFound) {
		d.declared.Delete(streamName(exchange))
	}
	return classifyNATS(err, "jetstream publish failed")
}

func (d *natsDriver) IsOpen() bool { return d.nc != nil && d.nc.IsConnected() }

func (d *natsDriver) Close() error {
	if d.nc == nil || d.nc.IsClosed() {
		return nil
	}
	if err := d.nc.Drain(); err != nil {
		d.nc.Close()
		return err
	}
	return nil
}

func classifyNATS(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, nats.ErrNoServers) || errors.Is(err, nats.ErrDisconnected) {
		return perr.Wrap(err, perr.ErrorCodeConnection, msg)
	}
	return perr.Wrap(err, perr.ErrorCodePublish, msg)
}

// streamName derives a valid stream name from an exchange ("smartcamera" -> "SMARTCAMERA")
func streamName(exchange string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, exchange)
}
