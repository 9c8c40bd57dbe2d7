package events

import (
	"context"
	"fmt"
	"time"

	"fintrack/config"
	"fintrack/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client RabbitMQ 客户端，direct exchange，队列名即 routing key
type Client struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchangeName string
	queueName    string
	log          *logger.Logger
}

// NewClient 连接并声明 exchange / queue
func NewClient(cfg config.AMQPConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: cfg.Exchange,
		queueName:    cfg.Queue,
		log:          logger.New("events"),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishBudgetAlert 发布预算提醒（持久化消息）
func (c *Client) PublishBudgetAlert(ctx context.Context, alert BudgetAlert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	body, err := alert.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    alert.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.log.InfoContext(ctx, "published budget alert",
		"user_id", alert.UserID, "level", alert.Level, "month", alert.Month, "year", alert.Year)
	return nil
}

// ConsumeBudgetAlerts 消费预算提醒直到 ctx 结束。处理失败的消息重新入队，格式错误的直接丢弃
func (c *Client) ConsumeBudgetAlerts(ctx context.Context, handler func(context.Context, *BudgetAlert) error) error {
	if err := c.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.log.InfoContext(ctx, "consuming budget alerts", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			alert, err := BudgetAlertFromJSON(delivery.Body)
			if err != nil {
				c.log.ErrorContext(ctx, "drop malformed budget alert", "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, alert); err != nil {
				c.log.ErrorContext(ctx, "handle budget alert failed", "error", err, "user_id", alert.UserID)
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close 关闭通道和连接
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
