package models

import (
	"time"

	"github.com/google/uuid"
)

// Types de commande
const (
	OrderTypeSample     = "sample"
	OrderTypeProduction = "production"
)

// Statuts initiaux possibles d'une commande
const (
	OrderStatusReceived        = "received"
	OrderStatusPendingProforma = "pending_proforma"
)

// Moyens de paiement acceptés au checkout
const (
	PaymentMethodTpay     = "tpay"
	PaymentMethodCard     = "card"
	PaymentMethodProforma = "proforma"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCOD      = "cod"
)

// Order est l'en-tête d'une commande. Tous les montants sont en unités mineures (grosze).
// DisplayNumber n'a volontairement pas de contrainte d'unicité en base.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayNumber   string          `gorm:"size:32;index" json:"displayNumber"`
	Reference       string          `gorm:"size:64;index" json:"reference"`
	Status          string          `gorm:"size:32;not null" json:"status"`
	Type            string          `gorm:"size:16;not null" json:"type"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"customerId"`
	BillingAddress  Address         `gorm:"serializer:json" json:"billingAddress"`
	ShippingAddress ShippingAddress `gorm:"serializer:json" json:"shippingAddress"`
	TotalNet        int64           `gorm:"not null" json:"totalNet"`
	TotalGross      int64           `gorm:"not null" json:"totalGross"`
	ShippingCost    int64           `gorm:"not null" json:"shippingCost"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	PaymentMethod   string          `gorm:"size:32;not null" json:"paymentMethod"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`

	Items    []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Timeline []OrderTimeline `gorm:"constraint:OnDelete:CASCADE" json:"timeline,omitempty"`
}

// OrderItem est une ligne de commande, immuable après création
type OrderItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null;index" json:"orderId"`
	ProductID    string    `gorm:"size:64" json:"productId"`
	SKU          string    `gorm:"size:64" json:"sku"`
	Name         string    `gorm:"not null" json:"name"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	Unit         string    `gorm:"size:16" json:"unit,omitempty"`
	UnitPriceNet int64     `gorm:"not null" json:"unitPriceNet"`
	TaxRate      float64   `gorm:"not null" json:"taxRate"`
	TotalNet     int64     `gorm:"not null" json:"totalNet"`
	TotalGross   int64     `gorm:"not null" json:"totalGross"`
}
