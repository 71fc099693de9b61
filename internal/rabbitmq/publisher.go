package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Ключи маршрутизации событий.
const (
	RoutingAccountRegistered = "account.registered"
	RoutingPremiumGranted    = "premium.granted"
)

// AccountRegistered событие о регистрации пользователя.
type AccountRegistered struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Registered time.Time `json:"registered_at"`
}

// PremiumGranted событие о выдаче премиум-доступа.
type PremiumGranted struct {
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует события в один exchange. Канал amqp не рассчитан на
// конкурентную публикацию, поэтому вызовы сериализуются.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewPublisher создаёт Publisher поверх настроенного канала.
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish публикует событие с ключом routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return PublishMessage(p.ch, p.exchange, routingKey, event)
}

// Close закрывает канал.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Noop издатель, который ничего не отправляет. Используется, когда брокер не настроен.
type Noop struct{}

// Publish ничего не делает.
func (Noop) Publish(context.Context, string, any) error { return nil }
