// Package queue 定义领域事件：主题、负载以及 header+payload 的 JSON 信封.
//
// 信封示例：
//
//	{
//	  "header": {"topic": "hy.index.updated", "producer": "indexer", "occurred_at": "...", "version": "v1"},
//	  "payload": {"collection_ids": ["col1"], "documents": 12}
//	}
//
// 消费者应忽略未知字段；header 中的 topic 与 trace_id 同时写入 watermill 元数据，
// 便于不解码负载就能路由和追踪.
package queue

import (
	"context"
	"fmt"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

const PayloadVersionV1 = "v1"

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// FromContext 取 ctx 中有效 span 的 trace id.
func FromContext(ctx context.Context) HeaderOption {
	return func(h *EventHeader) {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			h.TraceID = sc.TraceID().String()
		}
	}
}

// NewEventHeader 生成 UTC 时间戳的 v1 事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	h := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&h)
	}

	return h
}

func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]
	err := sonic.Unmarshal(b, &m)

	return m, err
}

// metadata 返回写入 watermill 元数据的非空头部字段.
func (h EventHeader) metadata() map[string]string {
	md := map[string]string{
		"topic":       h.Topic,
		"occurred_at": h.OccurredAt.Format(time.RFC3339Nano),
	}

	for k, v := range map[string]string{"trace_id": h.TraceID, "producer": h.Producer, "version": h.Version} {
		if v != "" {
			md[k] = v
		}
	}

	return md
}

// NewWatermillMessage 以 ULID 为消息 ID 封装事件.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewULID(), data)
	for k, v := range header.metadata() {
		msg.Metadata.Set(k, v)
	}

	return msg, nil
}

// ParseWatermillMessage 解码事件信封，错误信息带上主题与消息 ID.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	m, err := Decode[T](msg.Payload)
	if err != nil {
		return m, fmt.Errorf("decode %s message %s: %w", msg.Metadata.Get("topic"), msg.UUID, err)
	}

	return m, nil
}
