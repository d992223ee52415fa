package utils

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gocql/gocql"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/models"
)

type cqlExec func(ctx context.Context, stmt string, values ...interface{}) error

// OrderAuditLogger enregistre chaque commande créée dans audit_logs (ScyllaDB)
type OrderAuditLogger struct {
	exec cqlExec
	now  func() time.Time
}

func NewOrderAuditLogger(session *gocql.Session) *OrderAuditLogger {
	return &OrderAuditLogger{
		exec: func(ctx context.Context, stmt string, values ...interface{}) error {
			return session.Query(stmt, values...).WithContext(ctx).Exec()
		},
		now: time.Now,
	}
}

const insertAuditLog = `
	INSERT INTO audit_logs (
		id, user_email, action, resource, resource_id,
		new_value, success, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (a *OrderAuditLogger) Name() string { return "audit" }

// OrderCreated écrit l'entrée order.create
func (a *OrderAuditLogger) OrderCreated(ctx context.Context, placed checkout.PlacedOrder) error {
	entry := a.buildEntry(placed)

	if err := a.exec(ctx, insertAuditLog,
		entry.ID, entry.UserEmail, entry.Action, entry.Resource, entry.ResourceID,
		entry.NewValue, entry.Success, entry.Timestamp,
	); err != nil {
		log.Printf("❌ Erreur enregistrement log audit: %v", err)
		return err
	}
	return nil
}

func (a *OrderAuditLogger) buildEntry(placed checkout.PlacedOrder) models.AuditLog {
	order := placed.Order

	// Sérialiser l'état initial sans les lignes
	snapshot := map[string]interface{}{
		"display_number":   order.DisplayNumber,
		"reference":        order.Reference,
		"status":           order.Status,
		"type":             order.Type,
		"total_gross":      order.TotalGross,
		"shipping_cost":    order.ShippingCost,
		"currency":         order.Currency,
		"payment_method":   order.PaymentMethod,
		"customer_created": placed.CustomerCreated,
		"number_fallback":  placed.Fallback,
	}
	var newValue string
	if b, err := json.Marshal(snapshot); err == nil {
		newValue = string(b)
	}

	return models.AuditLog{
		ID:         gocql.TimeUUID(),
		UserEmail:  placed.Buyer.Email,
		Action:     models.ActionOrderCreate,
		Resource:   models.ResourceOrder,
		ResourceID: order.ID.String(),
		NewValue:   newValue,
		Success:    true,
		Timestamp:  a.now(),
	}
}
