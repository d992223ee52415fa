package checkout

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/metrics"
	"floorshop_back_end/internal/models"
)

// TemplateOrderCreated identifie le mail de confirmation de commande
const TemplateOrderCreated = "ORDER_CREATED"

// Noms des effets, utilisés dans les logs et la métrique side_effect_failures_total
const (
	EffectNotification = "notification"
	EffectPayment      = "payment"
)

// PlacedOrder est la commande commitée telle que vue par les effets post-commit
type PlacedOrder struct {
	Order           models.Order
	Buyer           models.Buyer
	CustomerCreated bool
	Fallback        bool
}

// Notification est une demande d'envoi de message au client
type Notification struct {
	Template   string
	Recipient  string
	Variables  map[string]string
	EntityID   string
	EntityType string
	// Bank est renseigné pour les commandes réglées par virement (QR de paiement joint)
	Bank        *config.BankSettings
	AmountGross int64
	Currency    string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// PaymentSessionRequest est la demande d'ouverture de session de paiement en ligne
type PaymentSessionRequest struct {
	OrderID          string
	AmountGross      int64
	Currency         string
	Description      string
	CorrelationToken string
	BuyerEmail       string
	BuyerName        string
	ReturnURL        string
	CancelURL        string
	PaymentMethod    string
}

// PaymentGateway ouvre une session et retourne l'URL de redirection
type PaymentGateway interface {
	CreateSession(ctx context.Context, req PaymentSessionRequest) (string, error)
}

// TokenSigner produit le jeton de corrélation transmis à la passerelle
type TokenSigner interface {
	Sign(orderID, reference string) (string, error)
}

// OrderObserver reçoit chaque commande commitée (audit, index, événement).
// Une erreur est journalisée et comptée, jamais remontée.
type OrderObserver interface {
	Name() string
	OrderCreated(ctx context.Context, order PlacedOrder) error
}

// SideEffects exécute la phase best-effort, strictement après le commit
type SideEffects struct {
	notifier      Notifier
	gateway       PaymentGateway
	signer        TokenSigner
	observers     []OrderObserver
	publicBaseURL string
	metrics       *metrics.Checkout
}

type SideEffectsConfig struct {
	Notifier      Notifier
	Gateway       PaymentGateway
	Signer        TokenSigner
	Observers     []OrderObserver
	PublicBaseURL string
	Metrics       *metrics.Checkout
}

func NewSideEffects(cfg SideEffectsConfig) *SideEffects {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop()
	}
	return &SideEffects{
		notifier:      cfg.Notifier,
		gateway:       cfg.Gateway,
		signer:        cfg.Signer,
		observers:     cfg.Observers,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		metrics:       m,
	}
}

// Run lance notification, paiement et observateurs en parallèle, chacun avec son propre timeout.
// L'annulation de la requête HTTP n'interrompt pas ces effets.
// Retourne l'URL de redirection de paiement, ou nil.
func (s *SideEffects) Run(ctx context.Context, placed PlacedOrder, settings config.ShopSettings) *string {
	base := context.WithoutCancel(ctx)
	timeout := settings.SideEffectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var (
		wg          sync.WaitGroup
		redirectURL *string
	)

	run := func(name string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.fail(name, placed, fmt.Errorf("panic: %v", r))
				}
			}()

			ectx, cancel := context.WithTimeout(base, timeout)
			defer cancel()
			if err := fn(ectx); err != nil {
				s.fail(name, placed, err)
			}
		}()
	}

	if s.notifier != nil {
		run(EffectNotification, func(ctx context.Context) error {
			return s.notifier.Notify(ctx, s.notification(placed, settings))
		})
	}

	if settings.IsOnlinePayment(placed.Order.PaymentMethod) {
		run(EffectPayment, func(ctx context.Context) error {
			u, err := s.openPaymentSession(ctx, placed)
			if err != nil {
				return err
			}
			redirectURL = &u
			return nil
		})
	}

	for _, obs := range s.observers {
		obs := obs
		run(obs.Name(), func(ctx context.Context) error {
			return obs.OrderCreated(ctx, placed)
		})
	}

	wg.Wait()
	return redirectURL
}

func (s *SideEffects) fail(name string, placed PlacedOrder, err error) {
	s.metrics.SideEffectFailures.WithLabelValues(name).Inc()
	log.Printf("⚠️ Effet post-commit %s en échec pour la commande %s (%s): %v",
		name, placed.Order.DisplayNumber, placed.Order.ID, err)
}

func (s *SideEffects) notification(placed PlacedOrder, settings config.ShopSettings) Notification {
	order := placed.Order
	n := Notification{
		Template:  TemplateOrderCreated,
		Recipient: placed.Buyer.Email,
		Variables: map[string]string{
			"reference":     order.Reference,
			"displayNumber": order.DisplayNumber,
			"customerName":  placed.Buyer.Name,
			"total":         FormatAmount(order.TotalGross, order.Currency),
			"link":          s.orderLink(order.Reference),
		},
		EntityID:    order.ID.String(),
		EntityType:  "order",
		AmountGross: order.TotalGross,
		Currency:    order.Currency,
	}

	switch order.PaymentMethod {
	case models.PaymentMethodProforma, models.PaymentMethodTransfer:
		if settings.Bank.IBAN != "" {
			bank := settings.Bank
			n.Bank = &bank
		}
	}
	return n
}

func (s *SideEffects) openPaymentSession(ctx context.Context, placed PlacedOrder) (string, error) {
	if s.gateway == nil {
		return "", fmt.Errorf("aucune passerelle de paiement configurée")
	}
	order := placed.Order

	req := PaymentSessionRequest{
		OrderID:       order.ID.String(),
		AmountGross:   order.TotalGross,
		Currency:      order.Currency,
		Description:   fmt.Sprintf("Commande %s", order.DisplayNumber),
		BuyerEmail:    placed.Buyer.Email,
		BuyerName:     placed.Buyer.Name,
		ReturnURL:     s.returnURL(order.Reference, "success"),
		CancelURL:     s.returnURL(order.Reference, "cancel"),
		PaymentMethod: order.PaymentMethod,
	}
	if s.signer != nil {
		token, err := s.signer.Sign(order.ID.String(), order.Reference)
		if err != nil {
			return "", fmt.Errorf("jeton de corrélation: %w", err)
		}
		req.CorrelationToken = token
	} else {
		req.CorrelationToken = order.ID.String()
	}

	redirect, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		return "", err
	}
	log.Printf("💳 Session de paiement ouverte pour %s", order.DisplayNumber)
	return redirect, nil
}

func (s *SideEffects) orderLink(reference string) string {
	return s.publicBaseURL + "/orders/" + url.PathEscape(reference)
}

func (s *SideEffects) returnURL(reference, status string) string {
	q := url.Values{}
	q.Set("reference", reference)
	q.Set("status", status)
	return s.publicBaseURL + "/checkout/return?" + q.Encode()
}
