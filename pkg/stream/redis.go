package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPayloadField is the stream entry field carrying the JSON payload.
const DefaultPayloadField = "payload"

// RedisDialer subscribes to a Redis stream; the target is the stream key.
// Only entries added after the subscription opens are delivered.
type RedisDialer struct {
	Client       redis.UniversalClient
	PayloadField string
	Block        time.Duration
}

// NewRedisDialer returns a dialer reading entries from client.
func NewRedisDialer(client redis.UniversalClient) *RedisDialer {
	return &RedisDialer{Client: client, PayloadField: DefaultPayloadField, Block: 25 * time.Second}
}

func (d *RedisDialer) Dial(ctx context.Context, target string) (Conn, error) {
	if d.Client == nil {
		return nil, errors.New("stream: redis client not configured")
	}
	if err := d.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("stream: redis connect: %w", err)
	}
	field := d.PayloadField
	if field == "" {
		field = DefaultPayloadField
	}
	block := d.Block
	if block <= 0 {
		block = 25 * time.Second
	}
	connCtx, cancel := context.WithCancel(context.Background())
	return &redisConn{
		client: d.Client,
		stream: target,
		field:  field,
		block:  block,
		lastID: "$",
		ctx:    connCtx,
		cancel: cancel,
	}, nil
}

type redisConn struct {
	client  redis.UniversalClient
	stream  string
	field   string
	block   time.Duration
	lastID  string
	pending [][]byte

	// ctx is cancelled by Close so a blocking XREAD returns.
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *redisConn) Read(ctx context.Context) ([]byte, error) {
	readCtx, stop := mergeCancel(ctx, c.ctx)
	defer stop()

	for len(c.pending) == 0 {
		res, err := c.client.XRead(readCtx, &redis.XReadArgs{
			Streams: []string{c.stream, c.lastID},
			Block:   c.block,
			Count:   100,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if readCtx.Err() != nil {
				return nil, readCtx.Err()
			}
			return nil, fmt.Errorf("stream: redis read: %w", err)
		}
		for _, streamRes := range res {
			for _, msg := range streamRes.Messages {
				c.lastID = msg.ID
				if payload, ok := msg.Values[c.field].(string); ok {
					c.pending = append(c.pending, []byte(payload))
				}
			}
		}
	}

	payload := c.pending[0]
	c.pending = c.pending[1:]
	return payload, nil
}

func (c *redisConn) Close() error {
	c.cancel()
	return nil
}

// mergeCancel returns a context cancelled when either parent is.
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
