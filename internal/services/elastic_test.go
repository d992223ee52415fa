package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexedRequest struct {
	method string
	path   string
	body   []byte
}

func newElasticServer(t *testing.T, status int) (*elasticsearch.Client, chan indexedRequest) {
	t.Helper()
	requests := make(chan indexedRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- indexedRequest{method: r.Method, path: r.URL.Path, body: body}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, requests
}

func placedForIndex() checkout.PlacedOrder {
	return checkout.PlacedOrder{
		Order: models.Order{
			ID:              uuid.MustParse("7b0c1b9e-4a43-4f3e-9d0c-0a6a2f5d1c11"),
			DisplayNumber:   "ZM-000042",
			Reference:       "WEB-0001",
			Status:          models.OrderStatusPendingProforma,
			Type:            models.OrderTypeProduction,
			ShippingAddress: models.ShippingAddress{Address: models.Address{City: "Kraków"}, Method: models.ShippingMethodCourier},
			TotalGross:      23000,
			Currency:        "PLN",
			PaymentMethod:   models.PaymentMethodProforma,
			CreatedAt:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			Items:           []models.OrderItem{{SKU: "OAK-CL-14"}},
		},
		Buyer: models.Buyer{Name: "Jan Kowalski", Email: "jan@example.com"},
	}
}

func TestOrderIndexer_IndexesSummary(t *testing.T) {
	client, requests := newElasticServer(t, http.StatusCreated)
	indexer := NewOrderIndexer(client, "")

	require.NoError(t, indexer.OrderCreated(context.Background(), placedForIndex()))

	req := <-requests
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/orders/_doc/7b0c1b9e-4a43-4f3e-9d0c-0a6a2f5d1c11", req.path)

	var doc orderDocument
	require.NoError(t, json.Unmarshal(req.body, &doc))
	assert.Equal(t, "ZM-000042", doc.DisplayNumber)
	assert.Equal(t, "jan@example.com", doc.CustomerEmail)
	assert.Equal(t, "Kraków", doc.City)
	assert.Equal(t, int64(23000), doc.TotalGross)
	assert.Equal(t, []string{"OAK-CL-14"}, doc.ItemSKUs)
	assert.False(t, doc.NeedsReview)
}

func TestOrderIndexer_ServerError(t *testing.T) {
	client, _ := newElasticServer(t, http.StatusBadRequest)
	indexer := NewOrderIndexer(client, "orders-test")

	err := indexer.OrderCreated(context.Background(), placedForIndex())
	assert.Error(t, err)
	assert.Equal(t, "search_index", indexer.Name())
}
