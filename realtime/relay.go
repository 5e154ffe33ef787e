package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const relayChannel = "scanndine:orders"

// RedisRelay carries hub messages between API instances over redis pub/sub.
type RedisRelay struct {
	client *redis.Client
	log    logrus.FieldLogger
}

// NewRedisRelay connects to the redis server at url and checks it answers.
func NewRedisRelay(ctx context.Context, url string, log logrus.FieldLogger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisRelay{client: client, log: log}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel, payload).Err()
}

// Run forwards relayed messages into hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) {
	sub := r.client.Subscribe(ctx, relayChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.WithError(err).Warn("dropping malformed relay message")
				continue
			}
			hub.Broadcast(env.Channels, env.Data)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
