package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"

	nport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/notify/port"
)

// AMQPNotifier publishes notifications to a fanout exchange consumed by the
// external push/email/SMS gateway. The broker treats delivery as
// fire-and-forget; whatever retry policy exists lives downstream.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// envelope is the wire shape consumed by the notification gateway.
type envelope struct {
	ParticipantID string          `json:"participant_id"`
	SentAt        time.Time       `json:"sent_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewAMQPNotifier connects to RabbitMQ and declares the exchange.
func NewAMQPNotifier(amqpURL, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange}, nil
}

var _ nport.Transport = (*AMQPNotifier)(nil)

func (n *AMQPNotifier) Name() string { return "amqp" }

func (n *AMQPNotifier) Send(ctx context.Context, participantID string, payload []byte) error {
	body, err := json.Marshal(envelope{
		ParticipantID: participantID,
		SentAt:        time.Now().UTC(),
		Payload:       payload,
	})
	if err != nil {
		return err
	}
	return n.channel.Publish(
		n.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close closes the RabbitMQ connection and channel.
func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
