package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/simholt/hyrax/pkg/configs"
)

// DefaultMemoryBuffer 进程内通道缓冲.
const DefaultMemoryBuffer = 256

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 创建进程内 gochannel pub/sub，publisher 与 subscriber 共享同一实例.
func memoryFactory(_ context.Context, _ *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: DefaultMemoryBuffer}, logger)

	return ps, ps, nil
}
