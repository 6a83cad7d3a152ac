// Package amqp publishes budget warnings to a RabbitMQ exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

const publishTimeout = 5 * time.Second

// BudgetWarning is the message body consumers receive.
type BudgetWarning struct {
	GroupID     string    `json:"groupId"`
	GroupName   string    `json:"groupName"`
	Tier        string    `json:"tier"`
	UsedPercent string    `json:"usedPercent"`
	Budget      string    `json:"budget"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBudgetWarning(n warning.Notification) BudgetWarning {
	return BudgetWarning{
		GroupID:     n.GroupID.String(),
		GroupName:   n.GroupName,
		Tier:        string(n.Tier),
		UsedPercent: n.UsedPercent.StringFixed(2),
		Budget:      n.Budget.String(),
		PeriodStart: n.Period.Start,
		PeriodEnd:   n.Period.End,
		Timestamp:   n.At,
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	conn       *amqp091.Connection
	ch         channel
	exchange   string
	routingKey string
}

// Dial connects to the broker and declares a durable direct exchange with a
// queue bound under routingKey.
func Dial(url, exchange, routingKey string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := declare(ch, exchange, routingKey); err != nil {
		ch.Close()
		conn.Close()

		return nil, err
	}

	p := newPublisher(ch, exchange, routingKey)
	p.conn = conn

	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey}
}

func declare(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue: %w", err)
	}

	return nil
}

func (p *Publisher) Notify(ctx context.Context, n warning.Notification) error {
	body, err := json.Marshal(NewBudgetWarning(n))
	if err != nil {
		return fmt.Errorf("encoding budget warning: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    n.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing budget warning: %w", err)
	}

	slog.DebugContext(ctx, "published budget warning",
		"group_id", n.GroupID,
		"exchange", p.exchange,
		"routing_key", p.routingKey,
	)

	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}

	if p.conn != nil {
		return p.conn.Close()
	}

	return nil
}
