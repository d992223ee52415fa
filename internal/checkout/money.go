package checkout

import (
	"strings"

	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/models"

	"github.com/shopspring/decimal"
)

var (
	half    = decimal.NewFromFloat(0.5)
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	// La livraison est toujours soumise au taux standard, quel que soit le taux des articles
	shippingVatDivisor = decimal.RequireFromString("1.23")
)

// ItemAmounts est le détail monétaire d'une ligne, en unités mineures
type ItemAmounts struct {
	Gross int64
	Net   int64
}

// MoneySnapshot est la décomposition monétaire d'un panier, en unités mineures.
// TotalGross == ItemsTotalGross + ShippingCost par construction.
type MoneySnapshot struct {
	Items           []ItemAmounts
	ItemsTotalGross int64
	ItemsTotalNet   int64
	ShippingCost    int64
	ShippingNet     int64
	TotalNet        int64
	TotalGross      int64
}

// roundHalfUp arrondit à l'entier, .5 vers +∞
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// ToMinorUnits convertit un montant décimal (ex. 223.00) en grosze (22300)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return roundHalfUp(amount.Mul(hundred))
}

// NetFromGross retire la TVA d'un montant brut : round(gross / (1 + vat))
func NetFromGross(gross int64, vatRate decimal.Decimal) int64 {
	return roundHalfUp(decimal.NewFromInt(gross).Div(one.Add(vatRate)))
}

// Decompose calcule les montants nets/bruts des lignes et déduit les frais de port
// comme résidu entre le total déclaré par le client et la somme des lignes.
// Le résidu peut être nul ou négatif ; il n'est pas revalidé ici (voir CheckTotal).
func Decompose(items []models.CartItem, declaredTotal decimal.Decimal) MoneySnapshot {
	snap := MoneySnapshot{
		Items:      make([]ItemAmounts, 0, len(items)),
		TotalGross: ToMinorUnits(declaredTotal),
	}

	for _, item := range items {
		gross := roundHalfUp(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Mul(hundred))
		net := NetFromGross(gross, item.VatRate)
		snap.Items = append(snap.Items, ItemAmounts{Gross: gross, Net: net})
		snap.ItemsTotalGross += gross
		snap.ItemsTotalNet += net
	}

	snap.ShippingCost = snap.TotalGross - snap.ItemsTotalGross
	snap.ShippingNet = roundHalfUp(decimal.NewFromInt(snap.ShippingCost).Div(shippingVatDivisor))
	snap.TotalNet = snap.ItemsTotalNet + snap.ShippingNet

	return snap
}

// UnitNetPrice répartit le net d'une ligne sur sa quantité
func UnitNetPrice(lineNet int64, quantity int) int64 {
	if quantity <= 0 {
		return lineNet
	}
	return roundHalfUp(decimal.NewFromInt(lineNet).Div(decimal.NewFromInt(int64(quantity))))
}

// IsSampleProduct applique la convention de nommage des échantillons (préfixe, insensible à la casse)
func IsSampleProduct(productID, samplePrefix string) bool {
	if samplePrefix == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(productID), strings.ToLower(samplePrefix))
}

// ClassifyOrder : "sample" si au moins une ligne est un échantillon, sinon "production"
func ClassifyOrder(items []models.CartItem, samplePrefix string) string {
	for _, item := range items {
		if IsSampleProduct(item.ProductID, samplePrefix) {
			return models.OrderTypeSample
		}
	}
	return models.OrderTypeProduction
}

// InitialStatus : une commande de production payée sur proforma attend la proforma,
// tout le reste démarre en "received"
func InitialStatus(orderType, paymentMethod string) string {
	if orderType == models.OrderTypeProduction && paymentMethod == models.PaymentMethodProforma {
		return models.OrderStatusPendingProforma
	}
	return models.OrderStatusReceived
}

// CheckTotal applique la politique de contrôle du total déclaré.
// "trust" accepte tout résidu. "strict" refuse un port négatif ou différent
// du port de base configuré pour le type de commande.
func CheckTotal(settings config.ShopSettings, snap MoneySnapshot, orderType string) error {
	if settings.TotalPolicy != config.TotalPolicyStrict {
		return nil
	}
	if snap.ShippingCost < 0 {
		return &ValidationError{Code: CodeTotalMismatch, Detail: "frais de port négatifs"}
	}
	if base, ok := settings.BaseShipping[orderType]; ok && snap.ShippingCost != base {
		return &ValidationError{Code: CodeTotalMismatch, Detail: "frais de port différents du tarif de base"}
	}
	return nil
}

// FormatAmount formate un montant en unités mineures pour l'affichage : 23000 → "230,00 PLN"
func FormatAmount(minor int64, currency string) string {
	s := strings.Replace(decimal.New(minor, -2).StringFixed(2), ".", ",", 1)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
