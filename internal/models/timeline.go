package models

import (
	"time"

	"github.com/google/uuid"
)

const TimelineTypeSystem = "system"

// OrderTimeline est une entrée du journal (append-only) d'une commande
type OrderTimeline struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"orderId"`
	Type      string         `gorm:"size:16;not null" json:"type"`
	Title     string         `gorm:"not null" json:"title"`
	Metadata  map[string]any `gorm:"serializer:json" json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (OrderTimeline) TableName() string {
	return "order_timeline"
}
