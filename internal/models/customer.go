package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer est identifié par son email (clé naturelle de l'upsert au checkout)
type Customer struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name            string          `gorm:"not null" json:"name"`
	Phone           string          `gorm:"size:32" json:"phone,omitempty"`
	TaxID           string          `gorm:"size:32" json:"taxId,omitempty"`
	BillingAddress  Address         `gorm:"serializer:json" json:"billingAddress"`
	ShippingAddress ShippingAddress `gorm:"serializer:json" json:"shippingAddress"`
	Source          string          `gorm:"size:32" json:"source"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Source par défaut d'un client créé au checkout
const CustomerSourceShop = "shop"
