package messaging

import (
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	perr "smartcamera-hub/internal/errors"
)

const (
	ContentTypeJSON = "application/json"
	ExchangeKind    = "topic"
)

// BrokerMessage is built per publish and discarded once the broker accepts it
type BrokerMessage struct {
	ID          string
	Exchange    string
	RoutingKey  string
	Body        []byte
	ContentType string
	Persistent  bool
	Timestamp   time.Time
}

// Unix returns the publish timestamp as epoch seconds, the precision brokers carry
func (m *BrokerMessage) Unix() int64 { return m.Timestamp.Unix() }

// NewMessage validates the addressing and serializes payload to JSON.
// Field casing comes from the payload's json tags, map keys are emitted sorted.
func NewMessage(exchange, routingKey string, payload any, now time.Time) (*BrokerMessage, error) {
	if strings.TrimSpace(exchange) == "" {
		return nil, perr.WithOp(perr.Validationf("exchange cannot be empty"), "message.new")
	}
	if strings.TrimSpace(routingKey) == "" {
		return nil, perr.WithOp(perr.Validationf("routing key cannot be empty"), "message.new")
	}
	if isNil(payload) {
		return nil, perr.WithOp(perr.Validationf("payload cannot be nil"), "message.new")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, perr.WithOp(perr.Wrap(err, perr.ErrorCodeValidation, "payload is not serializable"), "message.new")
	}

	return &BrokerMessage{
		ID:          uuid.NewString(),
		Exchange:    exchange,
		RoutingKey:  routingKey,
		Body:        body,
		ContentType: ContentTypeJSON,
		Persistent:  true,
		Timestamp:   now.UTC(),
	}, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
