package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billbuddy/internal/config"
	"billbuddy/pkg/utils"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPClient publishes emails to a durable queue and consumes them in the
// notifier worker.
type AMQPClient struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string

	publishMu sync.Mutex
}

func NewAMQPClient(cfg config.NotifierConfig) (*AMQPClient, error) {
	conn, err := amqp091.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &AMQPClient{
		conn:         conn,
		channel:      channel,
		exchangeName: cfg.Exchange,
		queueName:    cfg.Queue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *AMQPClient) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key is the queue name
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Send publishes e as a persistent message. It makes AMQPClient usable as the
// Dispatcher's Sender in the API process.
func (c *AMQPClient) Send(ctx context.Context, e Email) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Type:         e.Kind,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

// Consume delivers queued emails through sender until ctx is cancelled.
// Malformed messages are dropped; failed deliveries are requeued.
func (c *AMQPClient) Consume(ctx context.Context, sender Sender) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	utils.Logger.WithField("queue", c.queueName).Info("consuming email queue")

	for {
		select {
		case <-ctx.Done():
			utils.Logger.WithField("reason", ctx.Err()).Info("stopping email consumer")
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, delivery, sender)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp091.Delivery, sender Sender) {
	processMessage(ctx, d.Body, d.Redelivered, d, sender)
}

func processMessage(ctx context.Context, body []byte, redelivered bool, ack acknowledger, sender Sender) {
	e, err := EmailFromJSON(body)
	if err != nil {
		utils.Logger.WithError(err).Error("dropping malformed email message")
		ack.Nack(false, false)
		return
	}

	log := utils.Logger.WithFields(logrus.Fields{"kind": e.Kind, "to": e.To})
	if err := sender.Send(ctx, e); err != nil {
		// a message that already failed once is dropped rather than looping forever
		log.WithError(err).WithField("redelivered", redelivered).Error("failed to deliver queued email")
		ack.Nack(false, !redelivered)
		return
	}

	ack.Ack(false)
	log.Info("delivered queued email")
}

func (c *AMQPClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
