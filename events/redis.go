package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// RedisPublisher fans events out over Redis pub/sub so every API replica can
// push them to its own websocket clients. Each event goes to the company
// channel and, when it concerns an order, to that order's channel too.
type RedisPublisher struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, timeout: 2 * time.Second}
}

// NewRedisClient pings the server before returning the client.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (p *RedisPublisher) CompanyChannel(companyID uint) string {
	return fmt.Sprintf("%s:company:%d", p.prefix, companyID)
}

func (p *RedisPublisher) OrderChannel(orderID uint) string {
	return fmt.Sprintf("%s:order:%d", p.prefix, orderID)
}

// Channels lists where e is published.
func (p *RedisPublisher) Channels(e Event) []string {
	channels := []string{p.CompanyChannel(e.CompanyID)}
	if e.OrderID != 0 {
		channels = append(channels, p.OrderChannel(e.OrderID))
	}
	return channels
}

func (p *RedisPublisher) Emit(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.Publish(ctx, e); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event":      e.Name,
			"company_id": e.CompanyID,
		}).Errorf("redis: publish failed: %v", err)
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Name, err)
	}
	pipe := p.client.Pipeline()
	for _, channel := range p.Channels(e) {
		pipe.Publish(ctx, channel, body)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", e.Name, err)
	}
	return nil
}
