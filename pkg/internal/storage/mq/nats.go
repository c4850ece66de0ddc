package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/simholt/hyrax/pkg/configs"
)

const (
	natsDrainTimeout   = 30 * time.Second
	natsFlusherTimeout = 10 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

func natsOptions(cfg configs.MQNATSConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.ClientName),
		nc.MaxReconnects(cfg.MaxReconnects),
		nc.ReconnectWait(cfg.ReconnectWait),
		nc.PingInterval(cfg.PingInterval),
		nc.MaxPingsOutstanding(cfg.MaxPingsOut),
		nc.ReconnectBufSize(cfg.ReconnectBuf),
		nc.DrainTimeout(natsDrainTimeout),
		nc.FlusherTimeout(natsFlusherTimeout),
		nc.RetryOnFailedConnect(!cfg.FailFast),
	}

	if !cfg.Randomize {
		opts = append(opts, nc.DontRandomize())
	}

	switch {
	case cfg.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.JWT, cfg.NKeySeed))
	case cfg.User != "":
		opts = append(opts, nc.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

func jetStreamConfig(js configs.JetStreamConf) nats.JetStreamConfig {
	if !js.Enabled {
		return nats.JetStreamConfig{Disabled: true}
	}

	return nats.JetStreamConfig{
		AutoProvision: js.AutoProvision,
		TrackMsgId:    js.TrackMsgID,
		AckAsync:      js.AckAsync,
		DurablePrefix: js.DurablePrefix,
	}
}

func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	if len(cfg.NATS.URLs) == 0 {
		return nil, nil, fmt.Errorf("nats: no urls configured")
	}

	var (
		url       = strings.Join(cfg.NATS.URLs, ",")
		opts      = natsOptions(cfg.NATS)
		js        = jetStreamConfig(cfg.NATS.JetStream)
		marshaler = &nats.JSONMarshaler{}
	)

	logger.Info("connecting to nats", watermill.LogFields{
		"urls":      len(cfg.NATS.URLs),
		"jetstream": !js.Disabled,
	})

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL: url, NatsOptions: opts, JetStream: js, Marshaler: marshaler,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("nats publisher: %w", err)
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL: url, NatsOptions: opts, JetStream: js, Unmarshaler: marshaler,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("nats subscriber: %w", err)
	}

	return pub, sub, nil
}
