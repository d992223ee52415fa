package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"floorshop_back_end/internal/checkout"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

//
// --- INDEXATION DES COMMANDES DANS ELASTICSEARCH ---
//

// DefaultOrderIndex est l'index de recherche CRM des commandes
const DefaultOrderIndex = "orders"

// OrderIndexer pousse un résumé de chaque commande dans l'index de recherche du CRM
type OrderIndexer struct {
	client esapi.Transport
	index  string
}

func NewOrderIndexer(client esapi.Transport, index string) *OrderIndexer {
	if index == "" {
		index = DefaultOrderIndex
	}
	return &OrderIndexer{client: client, index: index}
}

// orderDocument est le document indexé (pas de lignes, pas d'adresse complète)
type orderDocument struct {
	OrderID       string    `json:"order_id"`
	DisplayNumber string    `json:"display_number"`
	Reference     string    `json:"reference"`
	Status        string    `json:"status"`
	OrderType     string    `json:"order_type"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	City          string    `json:"city"`
	PaymentMethod string    `json:"payment_method"`
	TotalGross    int64     `json:"total_gross"`
	Currency      string    `json:"currency"`
	ItemSKUs      []string  `json:"item_skus"`
	NeedsReview   bool      `json:"needs_review"`
	CreatedAt     time.Time `json:"created_at"`
}

func (i *OrderIndexer) Name() string { return "search_index" }

func (i *OrderIndexer) OrderCreated(ctx context.Context, placed checkout.PlacedOrder) error {
	order := placed.Order
	doc := orderDocument{
		OrderID:       order.ID.String(),
		DisplayNumber: order.DisplayNumber,
		Reference:     order.Reference,
		Status:        order.Status,
		OrderType:     order.Type,
		CustomerName:  placed.Buyer.Name,
		CustomerEmail: placed.Buyer.Email,
		City:          order.ShippingAddress.City,
		PaymentMethod: order.PaymentMethod,
		TotalGross:    order.TotalGross,
		Currency:      order.Currency,
		NeedsReview:   placed.Fallback,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		doc.ItemSKUs = append(doc.ItemSKUs, item.SKU)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encodage document commande: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: doc.OrderID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("Elastic a renvoyé une erreur pour %s: %s", order.DisplayNumber, res.String())
	}

	log.Printf("✅ Commande indexée dans Elasticsearch: %s", order.DisplayNumber)
	return nil
}
