package messaging

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/IBM/sarama"

	perr "smartcamera-hub/internal/errors"
)

// topicAdmin is the slice of sarama.ClusterAdmin used to provision topics
type topicAdmin interface {
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	Close() error
}

// kafkaDriver maps exchanges onto topics and routing keys onto message keys.
// Ordering per routing key follows from Kafka's key partitioning.
type kafkaDriver struct {
	producer sarama.SyncProducer
	admin    topicAdmin
	client   sarama.Client
	opts     Options
	declared sync.Map
	closed   atomic.Bool
}

func dialKafka(ctx context.Context, rawURL string, opts Options) (driver, error) {
	addrs, err := kafkaBrokers(rawURL)
	if err != nil {
		return nil, err
	}

	cfg := sarama.NewConfig()
	cfg.ClientID = clientID(opts.ClientName)
	cfg.Net.DialTimeout = opts.ConnectTimeout
	cfg.Net.KeepAlive = opts.Heartbeat
	cfg.Metadata.Retry.Backoff = opts.BackoffMin
	cfg.Admin.Timeout = opts.ConnectTimeout
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Backoff = opts.BackoffMin

	client, err := dialAsync(ctx, "connect", func() (sarama.Client, error) {
		return sarama.NewClient(addrs, cfg)
	}, func(c sarama.Client) { _ = c.Close() })
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeCanceled) {
			return nil, err
		}
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "kafka client failed")
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "kafka producer failed")
	}
	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeConnection, "kafka admin failed")
	}

	return &kafkaDriver{producer: producer, admin: admin, client: client, opts: opts}, nil
}

func (d *kafkaDriver) Name() string { return "kafka" }

func (d *kafkaDriver) Declare(ctx context.Context, exchange string) error {
	if _, ok := d.declared.Load(exchange); ok {
		return nil
	}

	err := d.admin.CreateTopic(exchange, &sarama.TopicDetail{
		NumPartitions:     d.opts.KafkaPartitions,
		ReplicationFactor: d.opts.KafkaReplication,
	}, false)
	if err != nil && !topicExists(err) {
		return classifyKafka(err, "topic declare failed")
	}

	d.declared.Store(exchange, struct{}{})
	return nil
}

func (d *kafkaDriver) Send(ctx context.Context, msg *BrokerMessage) error {
	_, _, err := d.producer.SendMessage(&sarama.ProducerMessage{
		Topic: msg.Exchange,
		Key:   sarama.StringEncoder(msg.RoutingKey),
		Value: sarama.ByteEncoder(msg.Body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte(msg.ContentType)},
			{Key: []byte("routing-key"), Value: []byte(msg.RoutingKey)},
			{Key: []byte("message-id"), Value: []byte(msg.ID)},
		},
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		// the topic was deleted behind our back; declare it again next time
		if errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			d.declared.Delete(msg.Exchange)
		}
		return classifyKafka(err, "kafka produce failed")
	}
	return nil
}

func (d *kafkaDriver) IsOpen() bool {
	if d.closed.Load() {
		return false
	}
	return d.client == nil || !d.client.Closed()
}

func (d *kafkaDriver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if err := d.producer.Close(); err != nil {
		errs = append(errs, err)
	}
	// an admin built from the client closes the client as well
	if d.admin != nil {
		if err := d.admin.Close(); err != nil && !errors.Is(err, sarama.ErrClosedClient) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func topicExists(err error) bool {
	if errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return true
	}
	var terr *sarama.TopicError
	return errors.As(err, &terr) && terr.Err == sarama.ErrTopicAlreadyExists
}

func classifyKafka(err error, msg string) error {
	if errors.Is(err, sarama.ErrClosedClient) || errors.Is(err, sarama.ErrOutOfBrokers) ||
		errors.Is(err, sarama.ErrNotConnected) || errors.Is(err, sarama.ErrShuttingDown) {
		return perr.Wrap(err, perr.ErrorCodeConnection, msg)
	}
	return perr.Wrap(err, perr.ErrorCodePublish, msg)
}

// kafkaBrokers parses kafka://host:port[,host:port...][/...]
func kafkaBrokers(rawURL string) ([]string, error) {
	_, rest, _ := strings.Cut(rawURL, "://")
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}

	var addrs []string
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(part); err != nil {
			return nil, perr.Wrapf(ErrInvalidURL, perr.ErrorCodeConnection, "invalid kafka broker %q: %v", part, err)
		}
		addrs = append(addrs, part)
	}
	if len(addrs) == 0 {
		return nil, perr.Wrapf(ErrInvalidURL, perr.ErrorCodeConnection, "no kafka brokers in %q", redact(rawURL))
	}
	return addrs, nil
}

func clientID(name string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
	if id == "" {
		return "smartcamera-hub"
	}
	return id
}
