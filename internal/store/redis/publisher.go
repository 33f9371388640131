// Package redis publishes per-tick view snapshots: the ranked leaderboard
// as a ZSET cache plus pub/sub fan-out of market and leaderboard payloads.
// All publishing is fire-and-forget; a circuit breaker keeps a dead Redis
// from adding per-tick connection timeouts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"btcsim/internal/metrics"
	"btcsim/internal/model"
)

const (
	leaderboardKey     = "leaderboard"
	marketChannel      = "pub:market"
	leaderboardChannel = "pub:leaderboard"

	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher implements model.SnapshotPublisher on Redis.
type Publisher struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	met     *metrics.Metrics // optional
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig, met *metrics.Metrics) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	breaker := NewCircuitBreaker(breakerMaxFailures, breakerResetTimeout)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client, breaker: breaker, met: met}, nil
}

// PublishMarket publishes the JSON market snapshot for a tick.
func (p *Publisher) PublishMarket(ctx context.Context, payload []byte) error {
	return p.execute(func() error {
		return p.client.Publish(ctx, marketChannel, payload).Err()
	})
}

// UpdateLeaderboard replaces the ranked leaderboard cache and publishes it.
// The ZSET scores players by net worth; member values carry the full row.
func (p *Publisher) UpdateLeaderboard(ctx context.Context, rows []model.LeaderboardEntry) error {
	return p.execute(func() error {
		pipe := p.client.TxPipeline()
		pipe.Del(ctx, leaderboardKey)
		for _, row := range rows {
			member, err := json.Marshal(row)
			if err != nil {
				return err
			}
			pipe.ZAdd(ctx, leaderboardKey, &goredis.Z{Score: row.NetWorth, Member: member})
		}
		payload, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, leaderboardChannel, payload)
		_, err = pipe.Exec(ctx)
		return err
	})
}

// execute wraps one publish in the breaker and latency metric. An open
// breaker skips the publish silently; the next tick retries.
func (p *Publisher) execute(fn func() error) error {
	start := time.Now()
	err := p.breaker.Execute(fn)
	if err == ErrCircuitOpen {
		return nil
	}
	if err != nil {
		log.Printf("[redis] publish error: %v", err)
		return err
	}
	if p.met != nil {
		p.met.RedisPublishDur.Observe(time.Since(start).Seconds())
	}
	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
