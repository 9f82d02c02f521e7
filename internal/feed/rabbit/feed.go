// Package rabbit is the RabbitMQ-backed feed for multi-node
// deployments: every node publishes row changes to a topic exchange
// and every session's subscriptions consume from their own queue.
package rabbit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/driftlabs/drift/internal/feed"
)

type Feed struct {
	conn     *amqp091.Connection
	pubCh    *amqp091.Channel
	exchange string
	log      *slog.Logger

	mu sync.Mutex // guards pubCh, amqp channels are not concurrency-safe
}

func Dial(url, exchange string, logger *slog.Logger) (*Feed, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &Feed{conn: conn, pubCh: ch, exchange: exchange, log: logger}, nil
}

func (f *Feed) Close() error {
	return f.conn.Close()
}

// Publish sends the raw row under the routing key "<table>.<kind>".
func (f *Feed) Publish(table string, kind feed.Kind, row any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshaling feed row: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pubCh.Publish(f.exchange, routingKey(table, kind), false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        data,
	})
}

// Subscribe consumes from an exclusive auto-delete queue bound to the
// table's routing keys. The filter is applied client-side, the broker
// only narrows by table and kind.
func (f *Feed) Subscribe(table string, filter *feed.Filter, kind feed.Kind, h feed.Handler) (func(), error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, routingKey(table, kind), f.exchange, false, nil); err != nil {
		ch.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	go func() {
		for d := range deliveries {
			event := feed.Event{
				Table: table,
				Kind:  kindFromKey(d.RoutingKey),
				Row:   d.Body,
			}
			if !filter.Matches(event) {
				continue
			}
			h(event)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := ch.Close(); err != nil {
				f.log.Warn("closing feed subscription", slog.String("table", table), slog.Any("error", err))
			}
		})
	}
	return cancel, nil
}

func routingKey(table string, kind feed.Kind) string {
	if kind == feed.KindAll {
		return table + ".*"
	}
	return table + "." + string(kind)
}

func kindFromKey(key string) feed.Kind {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return feed.Kind(key[i+1:])
	}
	return feed.Kind(key)
}
