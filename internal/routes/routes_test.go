package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorshop_back_end/internal/cache"
	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/handlers/payement"
	"floorshop_back_end/internal/metrics"
	"floorshop_back_end/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type okPlacer struct{ calls int }

func (p *okPlacer) PlaceOrder(context.Context, models.CartSubmission, string) (checkout.Result, error) {
	p.calls++
	return checkout.Result{Success: true, OrderID: "id", Reference: "WEB-1", DisplayNumber: "ZM-000001"}, nil
}

const orderBody = `{
	"customer": {"name": "Anna Nowak", "email": "anna@example.com"},
	"billingAddress": {"street": "ul. Polna 3", "city": "Poznań", "postalCode": "60-101"},
	"paymentMethod": "proforma",
	"items": [{"productId": "oak-classic", "name": "Parquet chêne", "quantity": 1, "unitPrice": "100.00", "vatRate": 0.23}],
	"totalAmount": 130.00
}`

func newRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	r := gin.New()
	RegisterRoutes(r, deps)
	return r
}

func postOrder(r http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/orders", strings.NewReader(orderBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCheckout(reg)
	m.OrdersPlaced.WithLabelValues(models.OrderStatusReceived).Inc()

	r := newRouter(t, Deps{Checkout: payement.NewCheckoutHandler(&okPlacer{}), Gatherer: reg})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkout_orders_placed_total")
}

func TestCheckoutRoute(t *testing.T) {
	placer := &okPlacer{}
	r := newRouter(t, Deps{Checkout: payement.NewCheckoutHandler(placer)})

	w := postOrder(r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, placer.calls)
}

func TestCheckoutRoute_CORSPreflight(t *testing.T) {
	r := newRouter(t, Deps{
		Checkout:       payement.NewCheckoutHandler(&okPlacer{}),
		AllowedOrigins: []string{"https://shop.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/checkout/orders", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCheckoutRoute_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	placer := &okPlacer{}
	r := newRouter(t, Deps{
		Checkout:    payement.NewCheckoutHandler(placer),
		RateLimiter: cache.NewRateLimiter(client, "checkout", 1, time.Minute),
	})

	require.Equal(t, http.StatusCreated, postOrder(r).Code)
	w := postOrder(r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, placer.calls)
}
