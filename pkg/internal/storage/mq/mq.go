// Package mq 提供基于 Watermill 的统一消息队列操作接口。
// 通过工厂模式抽象不同的 MQ 实现：
//   - nats（支持 JetStream）
//   - redis（pub/sub）
//   - memory（进程内 gochannel，单实例部署与测试使用）
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ, mq.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg, _ := queue.NewWatermillMessage(queue.TopicIndexUpdated, payload)
//	err = client.Publish(ctx, queue.TopicIndexUpdated, msg)
//
//	ch, err := client.Subscribe(ctx, queue.TopicIndexUpdated)
//	for m := range ch {
//		m.Ack()
//	}
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simholt/hyrax/pkg/configs"
	nlog "github.com/simholt/hyrax/pkg/log"
)

// ErrNotInitialized MQ 客户端未初始化.
var ErrNotInitialized = errors.New("mq client not initialized")

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的 MQ 类型.
func GetRegisteredTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Options 控制客户端装饰.
type Options struct {
	// Registerer 非空时为 publisher/subscriber 注册 watermill prometheus 指标.
	Registerer prometheus.Registerer
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	mqType     configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewFromPubSub 用现成的 publisher/subscriber 构造客户端.
func NewFromPubSub(t configs.MQType, pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{mqType: t, publisher: pub, subscriber: sub}
}

// New 按配置初始化消息队列客户端.
func New(ctx context.Context, cfg *configs.MQConfig, opts Options) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if opts.Registerer != nil {
		builder := metrics.NewPrometheusMetricsBuilder(opts.Registerer, "hyrax", "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 客户端已初始化")

	return &Client{mqType: cfg.Type, publisher: pub, subscriber: sub}, nil
}

// Type 返回 MQ 类型.
func (c *Client) Type() configs.MQType {
	return c.mqType
}

// Publisher 返回底层 publisher.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return ErrNotInitialized
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, ErrNotInitialized
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// Close 关闭资源.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	var errs []error

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}

	return errors.Join(errs...)
}
