package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/simholt/hyrax/pkg/configs"
)

// DefaultChannelBufferSize 每个订阅的输出通道容量.
const DefaultChannelBufferSize = 100

var errRedisSubscriberClosed = errors.New("redis subscriber closed")

// redisFrame 是 redis 频道上的消息格式，保留 watermill 的 UUID 与元数据.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func encodeFrame(msg *message.Message) ([]byte, error) {
	return sonic.Marshal(redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
}

// decodeFrame 解不开时把原始内容当作负载，兼容其他生产者直接 PUBLISH 的消息.
func decodeFrame(raw string) *message.Message {
	var f redisFrame
	if err := sonic.UnmarshalString(raw, &f); err != nil || f.UUID == "" {
		return message.NewMessage(watermill.NewUUID(), []byte(raw))
	}

	msg := message.NewMessage(f.UUID, f.Payload)
	for k, v := range f.Metadata {
		msg.Metadata.Set(k, v)
	}

	return msg
}

// RedisPublisher 基于 redis pub/sub，无持久化.
type RedisPublisher struct {
	client *redis.Client
}

// RedisSubscriber 每次 Subscribe 持有独立的 PubSub 连接.
type RedisSubscriber struct {
	client  *redis.Client
	logger  watermill.LoggerAdapter
	mu      sync.Mutex
	subs    []*redis.PubSub
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	pub := redis.NewClient(opts)
	if err := pub.Ping(ctx).Err(); err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}

	return &RedisPublisher{client: pub}, &RedisSubscriber{
		client:  redis.NewClient(opts),
		logger:  logger,
		closeCh: make(chan struct{}),
	}, nil
}

func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		frame, err := encodeFrame(msg)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", msg.UUID, err)
		}

		ctx := msg.Context()
		if err := p.client.Publish(ctx, topic, frame).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}

	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe ctx 结束或 Close 时关闭输出通道.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errRedisSubscriberClosed
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)
	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go s.forward(ctx, topic, ps.Channel(), out)

	return out, nil
}

// forward 逐条投递并等待 ack；redis 不支持重投，nack 只记日志.
func (s *RedisSubscriber) forward(ctx context.Context, topic string, in <-chan *redis.Message, out chan<- *message.Message) {
	defer s.wg.Done()
	defer close(out)

	for {
		var raw *redis.Message

		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}

			raw = m
		}

		msg := decodeFrame(raw.Payload)
		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			s.logger.Info("message nacked, redis pub/sub cannot redeliver",
				watermill.LogFields{"topic": topic, "uuid": msg.UUID})
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)

	for _, ps := range s.subs {
		_ = ps.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	return s.client.Close()
}
