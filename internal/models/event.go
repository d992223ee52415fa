package models

import "time"

// OrderEvent est le message publié sur RabbitMQ après la création d'une commande.
// Le DWH le consomme sur la même file que les autres événements commande.
type OrderEvent struct {
	Event         string    `json:"event"` // created
	OrderID       string    `json:"order_id"`
	Reference     string    `json:"reference"`
	DisplayNumber string    `json:"display_number"`
	OrderType     string    `json:"order_type"`
	Status        string    `json:"status"`
	TotalGross    int64     `json:"total_gross"`
	ShippingCost  int64     `json:"shipping_cost"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const OrderEventCreated = "created"
