package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OrderEventPublisher publie l'événement "created" sur la file consommée par les workers DWH
type OrderEventPublisher struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
	mu      sync.Mutex
	now     func() time.Time
}

// NewOrderEventPublisher ouvre la connexion et déclare la file (idempotent)
func NewOrderEventPublisher(cfg config.RabbitMQConfig) (*OrderEventPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connexion RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ouverture canal RabbitMQ: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.OrderQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("déclaration file %s: %w", cfg.OrderQueue, err)
	}

	p := newOrderEventPublisher(channel, cfg.OrderQueue)
	p.conn = conn
	return p, nil
}

func newOrderEventPublisher(channel amqpChannel, queue string) *OrderEventPublisher {
	return &OrderEventPublisher{channel: channel, queue: queue, now: time.Now}
}

func (p *OrderEventPublisher) Close() {
	if ch, ok := p.channel.(*amqp.Channel); ok && ch != nil {
		ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *OrderEventPublisher) Name() string { return "order_event" }

func (p *OrderEventPublisher) OrderCreated(ctx context.Context, placed checkout.PlacedOrder) error {
	order := placed.Order
	evt := models.OrderEvent{
		Event:         models.OrderEventCreated,
		OrderID:       order.ID.String(),
		Reference:     order.Reference,
		DisplayNumber: order.DisplayNumber,
		OrderType:     order.Type,
		Status:        order.Status,
		TotalGross:    order.TotalGross,
		ShippingCost:  order.ShippingCost,
		Currency:      order.Currency,
		OccurredAt:    p.now().UTC(),
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encodage événement commande: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.OrderID + ":" + evt.Event,
		Timestamp:    evt.OccurredAt,
		Type:         "order." + evt.Event,
		Body:         body,
	}

	// Un canal AMQP ne supporte pas les publications concurrentes
	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publication %s: %w", p.queue, err)
	}

	log.Printf("📤 Événement %s publié pour %s", evt.Event, order.DisplayNumber)
	return nil
}
