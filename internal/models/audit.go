package models

import (
	"time"

	"github.com/gocql/gocql"
)

// AuditLog représente une entrée du journal d'audit (table audit_logs, ScyllaDB)
type AuditLog struct {
	ID         gocql.UUID `json:"id"`
	UserEmail  string     `json:"user_email"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resource_id,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	Success    bool       `json:"success"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Actions et ressources d'audit
const (
	ActionOrderCreate = "order.create"
	ResourceOrder     = "order"
)
