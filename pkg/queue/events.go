package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishTransferCreated 发布 tv.transfer.created 事件。
func PublishTransferCreated(pub message.Publisher, payload TransferCreatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicTransferCreated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicTransferCreated, msg)
}

// PublishTransferReady 发布 tv.transfer.ready 事件。
func PublishTransferReady(pub message.Publisher, payload TransferReadyPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicTransferReady, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicTransferReady, msg)
}

// PublishTransferExpired 发布 tv.transfer.expired 事件。
func PublishTransferExpired(pub message.Publisher, payload TransferExpiredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicTransferExpired, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicTransferExpired, msg)
}

// PublishTransferDeleted 发布 tv.transfer.deleted 事件。
func PublishTransferDeleted(pub message.Publisher, payload TransferDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicTransferDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicTransferDeleted, msg)
}

// PublishTransferAccessed 发布 tv.transfer.accessed 事件。
// 下载凭证签发成功后触发，额度已原子扣减。
func PublishTransferAccessed(pub message.Publisher, payload TransferAccessedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicTransferAccessed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicTransferAccessed, msg)
}

// PublishTransferShared 发布 tv.transfer.shared 事件。
// 外部邮件工作者消费该主题并实际发送带下载链接的邮件。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishTransferShared(pub message.Publisher, payload TransferSharedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicTransferShared, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicTransferShared, msg)
}

// ParseTransferShared 将 Watermill 消息解析为强类型 Envelope（TransferSharedPayload）。
func ParseTransferShared(msg *message.Message) (Message[TransferSharedPayload], error) {
	return ParseWatermillMessage[TransferSharedPayload](msg)
}

// ParseTransferReady 将 Watermill 消息解析为强类型 Envelope（TransferReadyPayload）。
func ParseTransferReady(msg *message.Message) (Message[TransferReadyPayload], error) {
	return ParseWatermillMessage[TransferReadyPayload](msg)
}
