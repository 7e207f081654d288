package syncevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

// RedisConfig configures the optional cross-process progress channel.
type RedisConfig struct {
	URL     string
	Channel string
}

// wireEvent is Event's JSON-over-the-wire shape.
type wireEvent struct {
	Kind            string   `json:"kind"`
	Account         string   `json:"account"`
	Folder          string   `json:"folder,omitempty"`
	Folders         []string `json:"folders,omitempty"`
	Count           int      `json:"count,omitempty"`
	HunkDescription string   `json:"hunk_description,omitempty"`
}

// RedisSink publishes events to a Redis pub/sub channel so a process
// other than the one running the sync engine can observe its progress.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink connects to the Redis instance described by cfg.
func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindConfiguration, "invalid sync events redis url", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, mailerr.Wrap(mailerr.KindTransport, "connect to sync events redis", err)
	}

	return &RedisSink{client: client, channel: cfg.Channel}, nil
}

// Emit publishes ev to the configured channel, best-effort: a publish
// failure is swallowed since a sink must never block or fail the engine.
func (s *RedisSink) Emit(ev Event) {
	payload, err := json.Marshal(wireEvent{
		Kind:            ev.Kind.String(),
		Account:         ev.Account,
		Folder:          ev.Folder,
		Folders:         ev.Folders,
		Count:           ev.Count,
		HunkDescription: ev.HunkDescription,
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.client.Publish(ctx, s.channel, payload).Err()
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// DefaultChannel returns the conventional pub/sub channel name for an
// account's sync progress.
func DefaultChannel(account string) string {
	return fmt.Sprintf("mailcore:sync:%s", account)
}

var _ Sink = (*RedisSink)(nil)
