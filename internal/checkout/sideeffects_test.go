package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/metrics"
	"floorshop_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type recordingGateway struct {
	mu       sync.Mutex
	requests []PaymentSessionRequest
	url      string
	err      error
	block    bool
}

func (g *recordingGateway) CreateSession(ctx context.Context, req PaymentSessionRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.url, g.err
}

type staticSigner struct{}

func (staticSigner) Sign(orderID, reference string) (string, error) {
	return "token:" + orderID + ":" + reference, nil
}

type funcObserver struct {
	name string
	fn   func(ctx context.Context, order PlacedOrder) error
}

func (o funcObserver) Name() string { return o.name }

func (o funcObserver) OrderCreated(ctx context.Context, order PlacedOrder) error {
	return o.fn(ctx, order)
}

func placedOrder(method string) PlacedOrder {
	return PlacedOrder{
		Order: models.Order{
			ID:            uuid.MustParse("7b0c1b9e-4a43-4f3e-9d0c-0a6a2f5d1c11"),
			DisplayNumber: "ZM-000042",
			Reference:     "WEB-0001",
			Status:        models.OrderStatusReceived,
			Type:          models.OrderTypeProduction,
			TotalGross:    23000,
			Currency:      "PLN",
			PaymentMethod: method,
		},
		Buyer: models.Buyer{Name: "Jan Kowalski", Email: "jan@example.com"},
	}
}

func effectSettings() config.ShopSettings {
	s := config.DefaultShopSettings()
	s.SideEffectTimeout = time.Second
	return s
}

func TestSideEffects_OnlinePayment(t *testing.T) {
	notifier := &recordingNotifier{}
	gateway := &recordingGateway{url: "https://pay.test/session/1"}
	effects := NewSideEffects(SideEffectsConfig{
		Notifier:      notifier,
		Gateway:       gateway,
		Signer:        staticSigner{},
		PublicBaseURL: "https://shop.test/",
	})

	redirect := effects.Run(context.Background(), placedOrder(models.PaymentMethodTpay), effectSettings())

	require.NotNil(t, redirect)
	assert.Equal(t, "https://pay.test/session/1", *redirect)

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	assert.Equal(t, int64(23000), req.AmountGross)
	assert.Equal(t, "PLN", req.Currency)
	assert.Equal(t, "token:7b0c1b9e-4a43-4f3e-9d0c-0a6a2f5d1c11:WEB-0001", req.CorrelationToken)
	assert.Equal(t, "https://shop.test/checkout/return?reference=WEB-0001&status=success", req.ReturnURL)
	assert.Equal(t, "jan@example.com", req.BuyerEmail)

	require.Len(t, notifier.sent, 1)
	msg := notifier.sent[0]
	assert.Equal(t, TemplateOrderCreated, msg.Template)
	assert.Equal(t, "jan@example.com", msg.Recipient)
	assert.Equal(t, "WEB-0001", msg.Variables["reference"])
	assert.Equal(t, "Jan Kowalski", msg.Variables["customerName"])
	assert.Equal(t, "230,00 PLN", msg.Variables["total"])
	assert.Equal(t, "https://shop.test/orders/WEB-0001", msg.Variables["link"])
	assert.Equal(t, "order", msg.EntityType)
	assert.Nil(t, msg.Bank)
}

func TestSideEffects_OfflinePaymentSkipsGateway(t *testing.T) {
	gateway := &recordingGateway{url: "https://pay.test/session/1"}
	notifier := &recordingNotifier{}
	effects := NewSideEffects(SideEffectsConfig{Notifier: notifier, Gateway: gateway})

	settings := effectSettings()
	settings.Bank = config.BankSettings{AccountName: "Floor Sp. z o.o.", IBAN: "PL61109010140000071219812874"}

	redirect := effects.Run(context.Background(), placedOrder(models.PaymentMethodProforma), settings)

	assert.Nil(t, redirect)
	assert.Empty(t, gateway.requests)
	require.Len(t, notifier.sent, 1)
	require.NotNil(t, notifier.sent[0].Bank)
	assert.Equal(t, "PL61109010140000071219812874", notifier.sent[0].Bank.IBAN)
}

func TestSideEffects_FailuresAreContained(t *testing.T) {
	m := metrics.Noop()
	effects := NewSideEffects(SideEffectsConfig{
		Notifier: &recordingNotifier{err: errors.New("smtp down")},
		Gateway:  &recordingGateway{err: errors.New("gateway 503")},
		Observers: []OrderObserver{
			funcObserver{name: "audit", fn: func(context.Context, PlacedOrder) error { return errors.New("scylla timeout") }},
			funcObserver{name: "index", fn: func(context.Context, PlacedOrder) error { panic("nil client") }},
		},
		Metrics: m,
	})

	redirect := effects.Run(context.Background(), placedOrder(models.PaymentMethodCard), effectSettings())

	assert.Nil(t, redirect)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(EffectNotification)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(EffectPayment)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues("audit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues("index")))
}

func TestSideEffects_TimeoutIsIndependent(t *testing.T) {
	m := metrics.Noop()
	notifier := &recordingNotifier{}
	effects := NewSideEffects(SideEffectsConfig{
		Notifier: notifier,
		Gateway:  &recordingGateway{block: true},
		Metrics:  m,
	})
	settings := effectSettings()
	settings.SideEffectTimeout = 30 * time.Millisecond

	start := time.Now()
	redirect := effects.Run(context.Background(), placedOrder(models.PaymentMethodTpay), settings)

	assert.Nil(t, redirect)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(EffectPayment)))
}

func TestSideEffects_IgnoreRequestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	effects := NewSideEffects(SideEffectsConfig{
		Observers: []OrderObserver{funcObserver{name: "events", fn: func(ctx context.Context, _ PlacedOrder) error {
			seen = ctx.Err()
			return nil
		}}},
	})

	effects.Run(ctx, placedOrder(models.PaymentMethodCOD), effectSettings())
	assert.NoError(t, seen)
}

func TestSideEffects_MissingGatewayForOnlinePayment(t *testing.T) {
	m := metrics.Noop()
	effects := NewSideEffects(SideEffectsConfig{Metrics: m})

	redirect := effects.Run(context.Background(), placedOrder(models.PaymentMethodTpay), effectSettings())

	assert.Nil(t, redirect)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues(EffectPayment)))
}
