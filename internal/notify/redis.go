// Package notify publishes shipment events for the rest of the backend.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "shipments.created"

// Event is the JSON payload published for every created shipment document.
type Event struct {
	OrderID        int64     `json:"orderId"`
	DocumentNumber string    `json:"documentNumber"`
	RecipientName  string    `json:"recipientName"`
	RecipientPhone string    `json:"recipientPhone"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newEvent(order *shipment.Order, docNumber string, now time.Time) Event {
	c := order.Customer
	return Event{
		OrderID:        order.ID,
		DocumentNumber: docNumber,
		RecipientName:  strings.TrimSpace(c.FirstName + " " + c.LastName),
		RecipientPhone: c.Phone,
		RecipientEmail: c.Email,
		CreatedAt:      now.UTC(),
	}
}

// RedisNotifier publishes shipment events on a Redis pub/sub channel.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *otelzap.Logger
}

// NewRedisNotifier creates a notifier publishing to channel on the server at addr.
func NewRedisNotifier(addr, channel string, logger *otelzap.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		rdb:     redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		logger:  logger,
	}
}

// Ping checks that the Redis server is reachable.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.rdb.Ping(ctx).Err()
}

// ShipmentCreated publishes the event for order.
func (n *RedisNotifier) ShipmentCreated(ctx context.Context, order *shipment.Order, docNumber string) error {
	payload, err := json.Marshal(newEvent(order, docNumber, time.Now()))
	if err != nil {
		return fmt.Errorf("encoding shipment event: %w", err)
	}

	receivers, err := n.rdb.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publishing shipment event: %w", err)
	}

	n.logger.Ctx(ctx).Debug("Published shipment event",
		zap.String("channel", n.channel),
		zap.Int64("order_id", order.ID),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Close closes the Redis client.
func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

var _ shipment.Notifier = (*RedisNotifier)(nil)
