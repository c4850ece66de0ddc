package queue

import "github.com/ThreeDotsLabs/watermill/message"

// PublishIndexUpdated 发布 hy.index.updated 事件.
func PublishIndexUpdated(pub message.Publisher, payload IndexUpdatedPayload, opts ...HeaderOption) error {
	return publish(pub, TopicIndexUpdated, payload, opts...)
}

// ParseIndexUpdated 解析 hy.index.updated 事件.
func ParseIndexUpdated(msg *message.Message) (Message[IndexUpdatedPayload], error) {
	return ParseWatermillMessage[IndexUpdatedPayload](msg)
}

// PublishWorkIngested 发布 hy.work.ingested 事件.
func PublishWorkIngested(pub message.Publisher, payload WorkIngestedPayload, opts ...HeaderOption) error {
	return publish(pub, TopicWorkIngested, payload, opts...)
}

// ParseWorkIngested 解析 hy.work.ingested 事件.
func ParseWorkIngested(msg *message.Message) (Message[WorkIngestedPayload], error) {
	return ParseWatermillMessage[WorkIngestedPayload](msg)
}

// PublishReportGenerated 发布 hy.report.generated 事件.
func PublishReportGenerated(pub message.Publisher, payload ReportGeneratedPayload, opts ...HeaderOption) error {
	return publish(pub, TopicReportGenerated, payload, opts...)
}

// ParseReportGenerated 解析 hy.report.generated 事件.
func ParseReportGenerated(msg *message.Message) (Message[ReportGeneratedPayload], error) {
	return ParseWatermillMessage[ReportGeneratedPayload](msg)
}

func publish[T any](pub message.Publisher, topic string, payload T, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}
