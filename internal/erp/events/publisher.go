package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventStockChanged is the SSE event type and redis payload kind
const EventStockChanged = "stock_changed"

// StockChanged describes the counters of one item after a committed operation
type StockChanged struct {
	ItemID    string          `json:"item_id"`
	Code      string          `json:"code"`
	Total     decimal.Decimal `json:"total"`
	Reserved  decimal.Decimal `json:"reserved"`
	Free      decimal.Decimal `json:"free"`
	Reason    string          `json:"reason"`
	Reference string          `json:"reference"`
	At        time.Time       `json:"at"`
}

// Publisher delivers committed stock changes. Failures never roll anything back.
type Publisher interface {
	Publish(ctx context.Context, changes []StockChanged) error
}

// HubPublisher pushes events to SSE clients
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, changes []StockChanged) error {
	for _, c := range changes {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal stock event: %w", err)
		}
		p.hub.Broadcast(Event{EventType: EventStockChanged, Data: string(data)})
	}
	return nil
}

// RedisPublisher PUBLISHes each change as JSON on a channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, changes []StockChanged) error {
	if len(changes) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, c := range changes {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal stock event: %w", err)
		}
		pipe.Publish(ctx, p.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish to redis channel %s: %w", p.channel, err)
	}
	return nil
}

// Fanout publishes to several publishers and logs individual failures
type Fanout struct {
	publishers []Publisher
	logger     *zap.Logger
}

func NewFanout(logger *zap.Logger, publishers ...Publisher) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{publishers: publishers, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, changes []StockChanged) error {
	for _, p := range f.publishers {
		if err := p.Publish(ctx, changes); err != nil {
			f.logger.Warn("stock event publish failed", zap.Error(err), zap.Int("changes", len(changes)))
		}
	}
	return nil
}
