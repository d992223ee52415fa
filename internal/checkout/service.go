package checkout

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/metrics"
	"floorshop_back_end/internal/models"

	"github.com/google/uuid"
)

// ReferencePrefix préfixe les références générées côté serveur quand le front n'en envoie pas
const ReferencePrefix = "WEB-"

var offlinePaymentMethods = []string{
	models.PaymentMethodProforma,
	models.PaymentMethodTransfer,
	models.PaymentMethodCOD,
}

// Result est la réponse synchrone du checkout
type Result struct {
	Success       bool    `json:"success"`
	OrderID       string  `json:"orderId"`
	Reference     string  `json:"reference"`
	DisplayNumber string  `json:"displayNumber"`
	RedirectURL   *string `json:"redirectUrl"`
}

// Deps regroupe les collaborateurs du service
type Deps struct {
	Settings    func() config.ShopSettings
	Gate        *Gate
	Repository  Repository
	SideEffects *SideEffects
	Metrics     *metrics.Checkout
}

// Service transforme une soumission de panier en commande persistée, en deux phases :
// transaction atomique puis effets best-effort.
type Service struct {
	settings    func() config.ShopSettings
	gate        *Gate
	repo        Repository
	sideEffects *SideEffects
	metrics     *metrics.Checkout
}

func NewService(deps Deps) *Service {
	m := deps.Metrics
	if m == nil {
		m = metrics.Noop()
	}
	settings := deps.Settings
	if settings == nil {
		settings = config.DefaultShopSettings
	}
	gate := deps.Gate
	if gate == nil {
		gate = NewGate(nil, m)
	}
	effects := deps.SideEffects
	if effects == nil {
		effects = NewSideEffects(SideEffectsConfig{Metrics: m})
	}
	return &Service{
		settings:    settings,
		gate:        gate,
		repo:        deps.Repository,
		sideEffects: effects,
		metrics:     m,
	}
}

// PlaceOrder exécute le checkout complet.
// Seules ValidationError et PersistenceError sont retournées ; tout le reste est journalisé.
func (s *Service) PlaceOrder(ctx context.Context, sub models.CartSubmission, remoteIP string) (Result, error) {
	settings := s.settings()

	// ✅ 1. Anti-spam, avant tout calcul et toute écriture
	if err := s.gate.Check(ctx, settings.Captcha, sub.CaptchaToken, remoteIP); err != nil {
		return Result{}, err
	}

	// ✅ 2. Forme du panier et moyen de paiement
	if err := validateSubmission(sub, settings); err != nil {
		return Result{}, err
	}

	// ✅ 3. Montants, type et statut
	snap := Decompose(sub.Items, sub.TotalAmount)
	orderType := ClassifyOrder(sub.Items, settings.SampleProductPrefix)
	status := InitialStatus(orderType, sub.PaymentMethod)

	if base, ok := settings.BaseShipping[orderType]; ok && base != snap.ShippingCost {
		log.Printf("⚠️ Port déclaré %d ≠ port de base %d (%s)", snap.ShippingCost, base, orderType)
	}
	if err := CheckTotal(settings, snap, orderType); err != nil {
		return Result{}, err
	}

	reference := strings.TrimSpace(sub.Reference)
	if reference == "" {
		reference = NewReference()
	}

	source := sub.Source
	if source == "" {
		source = models.CustomerSourceShop
	}

	draft := OrderDraft{
		Buyer:         sub.Buyer,
		Billing:       sub.BillingAddress,
		Shipping:      NormalizeShipping(sub),
		Items:         sub.Items,
		Money:         snap,
		OrderType:     orderType,
		Status:        status,
		PaymentMethod: sub.PaymentMethod,
		Currency:      settings.Currency,
		Reference:     reference,
		Note:          sub.Note,
		Source:        source,
	}

	// ✅ 4. Transaction : numéro, client, commande, lignes, journal
	persisted, err := s.repo.CreateOrder(ctx, draft)
	if err != nil {
		s.metrics.PersistenceErrors.Inc()
		log.Printf("❌ Erreur enregistrement commande %s: %v", reference, err)
		return Result{}, &PersistenceError{Err: err}
	}

	order := persisted.Order
	if persisted.Allocation.Fallback {
		s.metrics.NumberFallbacks.Inc()
	}
	s.metrics.OrdersPlaced.WithLabelValues(order.Status).Inc()
	log.Printf("📦 Commande %s créée (%s, %s, %s) pour %s",
		order.DisplayNumber, order.Type, order.Status, FormatAmount(order.TotalGross, order.Currency), sub.Buyer.Email)

	// ✅ 5. Effets post-commit : ne peuvent plus faire échouer la commande
	redirectURL := s.sideEffects.Run(ctx, PlacedOrder{
		Order:           order,
		Buyer:           sub.Buyer,
		CustomerCreated: persisted.CustomerCreated,
		Fallback:        persisted.Allocation.Fallback,
	}, settings)

	return Result{
		Success:       true,
		OrderID:       order.ID.String(),
		Reference:     order.Reference,
		DisplayNumber: order.DisplayNumber,
		RedirectURL:   redirectURL,
	}, nil
}

func validateSubmission(sub models.CartSubmission, settings config.ShopSettings) error {
	if len(sub.Items) == 0 {
		return &ValidationError{Code: CodeEmptyCart, Err: ErrEmptyCart}
	}
	for i, item := range sub.Items {
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			return invalidItem(i, "productId manquant")
		case item.Quantity < 1:
			return invalidItem(i, "quantité invalide")
		case item.UnitPrice.IsNegative():
			return invalidItem(i, "prix négatif")
		case item.VatRate.IsNegative():
			return invalidItem(i, "taux de TVA négatif")
		}
	}

	method := sub.PaymentMethod
	if !settings.IsOnlinePayment(method) && !slices.Contains(offlinePaymentMethods, method) {
		return &ValidationError{Code: CodeInvalidPaymentMethod, Detail: method}
	}
	return nil
}

func invalidItem(index int, detail string) error {
	return &ValidationError{Code: CodeInvalidItem, Detail: fmt.Sprintf("ligne %d: %s", index+1, detail), Err: ErrInvalidItem}
}

// NormalizeShipping construit l'instantané de livraison : consigne, adresse distincte
// ou, à défaut, copie de l'adresse de facturation
func NormalizeShipping(sub models.CartSubmission) models.ShippingAddress {
	if dp := sub.DeliveryPoint; dp != nil && strings.TrimSpace(dp.ID) != "" {
		return models.ShippingAddress{
			Address:       sub.BillingAddress,
			Method:        models.ShippingMethodLocker,
			LockerID:      dp.ID,
			LockerName:    dp.Name,
			LockerAddress: dp.Address,
		}
	}
	if sub.ShippingAddress != nil && !sub.ShippingAddress.IsZero() {
		return models.ShippingAddress{Address: *sub.ShippingAddress, Method: models.ShippingMethodCourier}
	}
	return models.ShippingAddress{Address: sub.BillingAddress, Method: models.ShippingMethodCourier}
}

// NewReference génère une référence client WEB-XXXXXXXX
func NewReference() string {
	return ReferencePrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
