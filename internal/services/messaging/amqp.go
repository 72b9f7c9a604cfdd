package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	perr "smartcamera-hub/internal/errors"
)

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (s amqpSession) close() error {
	var errs []error
	if s.ch != nil {
		if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// amqpDriver owns one connection and one publishing channel. A supervisor
// goroutine reopens the channel, or the whole connection, after broker-side
// closes until Close is called.
type amqpDriver struct {
	url  string
	opts Options

	mu   sync.Mutex
	sess amqpSession

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func dialAMQP(ctx context.Context, rawURL string, opts Options) (driver, error) {
	d := &amqpDriver{url: rawURL, opts: opts}

	sess, err := dialAsync(ctx, "connect", d.open, func(s amqpSession) { _ = s.close() })
	if err != nil {
		return nil, err
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.sess = sess
	d.wg.Add(1)
	go d.supervise(sess)
	return d, nil
}

func (d *amqpDriver) open() (amqpSession, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(d.opts.ClientName)

	conn, err := amqp.DialConfig(d.url, amqp.Config{
		Heartbeat:  d.opts.Heartbeat,
		Dial:       amqp.DefaultDial(d.opts.ConnectTimeout),
		Properties: props,
	})
	if err != nil {
		return amqpSession{}, perr.Wrap(err, perr.ErrorCodeConnection, "amqp dial failed")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return amqpSession{}, perr.Wrap(err, perr.ErrorCodeConnection, "amqp channel open failed")
	}
	return amqpSession{conn: conn, ch: ch}, nil
}

func (d *amqpDriver) Name() string { return "amqp" }

func (d *amqpDriver) channel() (*amqp.Channel, error) {
	if d.sess.conn == nil || d.sess.conn.IsClosed() {
		return nil, perr.Connectionf("amqp connection is not open")
	}
	if d.sess.ch == nil || d.sess.ch.IsClosed() {
		return nil, perr.Connectionf("amqp channel is not open")
	}
	return d.sess.ch, nil
}

func (d *amqpDriver) Declare(ctx context.Context, exchange string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, err := d.channel()
	if err != nil {
		return err
	}
	// durable, no auto-delete, not internal, wait for the broker
	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return classifyAMQP(err, "exchange declare failed")
	}
	return nil
}

func (d *amqpDriver) Send(ctx context.Context, msg *BrokerMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, err := d.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, msg.Exchange, msg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(msg.Unix(), 0),
		MessageId:    msg.ID,
		Body:         msg.Body,
	})
	if err != nil {
		return classifyAMQP(err, "basic.publish failed")
	}
	return nil
}

func (d *amqpDriver) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.channel()
	return err == nil
}

func (d *amqpDriver) Close() error {
	d.cancel()

	d.mu.Lock()
	sess := d.sess
	d.sess = amqpSession{}
	d.mu.Unlock()

	err := sess.close()
	d.wg.Wait()
	return err
}

func (d *amqpDriver) supervise(sess amqpSession) {
	defer d.wg.Done()
	log := d.opts.Logger

	for {
		connClosed := sess.conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := sess.ch.NotifyClose(make(chan *amqp.Error, 1))

	watch:
		for {
			select {
			case <-d.ctx.Done():
				return
			case reason := <-connClosed:
				if d.ctx.Err() != nil {
					return
				}
				log.Warn().Interface("reason", reason).Msg("AMQP connection closed, reconnecting")
				break watch
			case reason := <-chClosed:
				if d.ctx.Err() != nil {
					return
				}
				log.Warn().Interface("reason", reason).Msg("AMQP channel closed")
				if sess.conn.IsClosed() {
					break watch
				}
				ch, err := sess.conn.Channel()
				if err != nil {
					log.Warn().Err(err).Msg("Failed to reopen AMQP channel, reconnecting")
					break watch
				}
				if !d.swap(amqpSession{conn: sess.conn, ch: ch}) {
					return
				}
				sess.ch = ch
				chClosed = ch.NotifyClose(make(chan *amqp.Error, 1))
				log.Info().Msg("AMQP channel reopened")
			}
		}

		next, ok := d.reconnect()
		if !ok {
			return
		}
		sess = next
	}
}

// swap installs a new session unless the driver has been closed
func (d *amqpDriver) swap(next amqpSession) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx.Err() != nil {
		_ = next.close()
		return false
	}
	prev := d.sess
	d.sess = next
	if prev.conn != nil && prev.conn != next.conn {
		_ = prev.close()
	}
	return true
}

func (d *amqpDriver) reconnect() (amqpSession, bool) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.BackoffMin
	b.MaxInterval = d.opts.BackoffMax
	b.MaxElapsedTime = 0

	var sess amqpSession
	op := func() error {
		s, err := d.open()
		if err != nil {
			return err
		}
		if !d.swap(s) {
			return backoff.Permanent(context.Canceled)
		}
		sess = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		d.opts.Logger.Warn().Err(err).Dur("retry_in", wait).Msg("AMQP reconnect attempt failed")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, d.ctx), notify); err != nil {
		return amqpSession{}, false
	}
	d.opts.Logger.Info().Msg("AMQP connection re-established")
	return sess, true
}

func classifyAMQP(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, amqp.ErrClosed) {
		return perr.Wrap(err, perr.ErrorCodeConnection, msg)
	}
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) && !amqpErr.Recover {
		return perr.Wrap(err, perr.ErrorCodeConnection, msg)
	}
	return perr.Wrap(err, perr.ErrorCodePublish, msg)
}
