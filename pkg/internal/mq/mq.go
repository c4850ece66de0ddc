// Package mq 订阅领域事件并驱动本地副作用.
//
// 目前只有一个消费者：收到 hy.index.updated 后让计数缓存整体失效.
//
// 使用示例：
//
//	consumer := mq.NewInvalidationConsumer(mgr.GetMQClient(), mgr.GetKVClient())
//	go func() {
//		if err := consumer.Run(ctx); err != nil {
//			log.Error().Err(err).Msg("consumer stopped")
//		}
//	}()
package mq

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/queue"
)

// Subscriber 订阅能力，*storage/mq.Client 实现了它.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// InvalidationConsumer 消费 hy.index.updated，自增计数缓存代数.
type InvalidationConsumer struct {
	sub    Subscriber
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewInvalidationConsumer 创建消费者.
func NewInvalidationConsumer(sub Subscriber, store kv.KVStore) *InvalidationConsumer {
	return &InvalidationConsumer{
		sub:    sub,
		cache:  cache.NewCache(store),
		logger: nlog.Component("mq.invalidation"),
	}
}

// Run 阻塞直到 ctx 取消或订阅通道关闭.
func (c *InvalidationConsumer) Run(ctx context.Context) error {
	msgs, err := c.sub.Subscribe(ctx, queue.TopicIndexUpdated)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.TopicIndexUpdated, err)
	}

	c.logger.Info().Str("topic", queue.TopicIndexUpdated).Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			c.Handle(ctx, msg)
		}
	}
}

// Handle 处理一条消息；无法解析的消息记录后确认，代数更新失败则 Nack 等待重投.
func (c *InvalidationConsumer) Handle(ctx context.Context, msg *message.Message) {
	evt, err := queue.ParseIndexUpdated(msg)
	if err != nil {
		c.logger.Error().Err(err).Str("uuid", msg.UUID).Msg("drop undecodable message")
		msg.Ack()

		return
	}

	gen, err := c.cache.Bump(ctx, service.CountsGenerationKey)
	if err != nil {
		c.logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("bump counts generation failed")
		msg.Nack()

		return
	}

	c.logger.Debug().
		Int64("generation", gen).
		Int("documents", evt.Payload.Documents).
		Bool("full", evt.Payload.Full).
		Strs("collections", evt.Payload.CollectionIDs).
		Msg("counts cache invalidated")

	msg.Ack()
}
