package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var RabbitMQConn *amqp.Connection
var RabbitMQChannel *amqp.Channel

// 拍卖事件类型
const (
	EventAuctionCreated = "auction.created"
	EventBidAccepted    = "auction.bid"
	EventAuctionEnded   = "auction.ended"
)

// AuctionEvent 拍卖领域事件（发往下游通知/索引服务）
type AuctionEvent struct {
	Type      string `json:"type"`
	AuctionID uint64 `json:"auction_id"`
	Account   string `json:"account,omitempty"` // 出价人/买受人地址
	Amount    string `json:"amount,omitempty"`  // 金额（wei）
	Timestamp int64  `json:"timestamp"`
}

// InitRabbitMQ 初始化RabbitMQ
func InitRabbitMQ(url string) error {
	// 建立连接
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	RabbitMQConn = conn

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	RabbitMQChannel = ch

	// 声明交换机和队列
	err = declareExchangeAndQueue()
	if err != nil {
		return err
	}

	return nil
}

// 声明交换机和队列（拍卖事件队列）
func declareExchangeAndQueue() error {
	// 声明交换机
	err := RabbitMQChannel.ExchangeDeclare(
		"nft_auction_exchange", // 交换机名
		"topic",                // 类型（按事件类型路由）
		true,                   // 持久化
		false,                  // 自动删除
		false,                  // 内部
		false,                  // 等待
		nil,                    // 参数
	)
	if err != nil {
		return err
	}

	// 声明队列
	_, err = RabbitMQChannel.QueueDeclare(
		"nft_auction_events", // 队列名
		true,                 // 持久化
		false,                // 自动删除
		false,                // 排他
		false,                // 等待
		nil,                  // 参数
	)
	if err != nil {
		return err
	}

	// 绑定队列到交换机（订阅全部拍卖事件）
	err = RabbitMQChannel.QueueBind(
		"nft_auction_events",   // 队列名
		"auction.*",            // 路由键
		"nft_auction_exchange", // 交换机名
		false,
		nil,
	)
	if err != nil {
		return err
	}

	return nil
}

// PublishAuctionEvent 发布拍卖事件
// MQ未初始化时跳过（事件仅用于下游通知，不参与核心状态变更）
func PublishAuctionEvent(ctx context.Context, event AuctionEvent) error {
	if RabbitMQChannel == nil {
		return nil
	}

	event.Timestamp = time.Now().Unix()

	// 序列化消息
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// 发布消息
	err = RabbitMQChannel.Publish(
		"nft_auction_exchange", // 交换机名
		event.Type,             // 路由键=事件类型
		false,                  // 强制
		false,                  // 立即
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent, // 持久化
			Timestamp:    time.Now(),
		},
	)
	return err
}

// ConsumeAuctionEvents 消费拍卖事件（通知桥）
func ConsumeAuctionEvents(handler func(event AuctionEvent) error) error {
	msgs, err := RabbitMQChannel.Consume(
		"nft_auction_events", // 队列名
		"",                   // 消费者标签
		false,                // 自动确认
		false,                // 排他
		false,                // 不本地
		false,                // 等待
		nil,                  // 参数
	)
	if err != nil {
		return err
	}

	// 启动协程消费消息
	go func() {
		for d := range msgs {
			// 反序列化消息
			var event AuctionEvent
			err := json.Unmarshal(d.Body, &event)
			if err != nil {
				Logger.Error("事件反序列化失败", zap.Error(err))
				d.Nack(false, false) // 拒绝消息，不重新入队
				continue
			}

			// 处理消息
			err = handler(event)
			if err != nil {
				Logger.Error("处理拍卖事件失败", zap.String("type", event.Type), zap.Uint64("auction_id", event.AuctionID), zap.Error(err))
				d.Nack(false, true) // 拒绝消息，重新入队
			} else {
				d.Ack(false) // 确认消息
			}
		}
	}()

	return nil
}

// CloseRabbitMQ 关闭RabbitMQ连接
func CloseRabbitMQ() {
	if RabbitMQChannel != nil {
		RabbitMQChannel.Close()
	}
	if RabbitMQConn != nil {
		RabbitMQConn.Close()
	}
}
