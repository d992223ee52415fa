package models

import "github.com/shopspring/decimal"

// CartSubmission est la soumission de checkout envoyée par le front.
// Elle n'est jamais persistée telle quelle.
type CartSubmission struct {
	Buyer           Buyer           `json:"customer" binding:"required"`
	BillingAddress  Address         `json:"billingAddress" binding:"required"`
	ShippingAddress *Address        `json:"shippingAddress,omitempty"`
	DeliveryPoint   *DeliveryPoint  `json:"deliveryPoint,omitempty"`
	PaymentMethod   string          `json:"paymentMethod" binding:"required"`
	Items           []CartItem      `json:"items" binding:"required,min=1,dive"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Reference       string          `json:"reference,omitempty"`
	Note            string          `json:"note,omitempty"`
	CaptchaToken    string          `json:"captchaToken,omitempty"`
	Source          string          `json:"source,omitempty"`
}

// Buyer regroupe l'identité de l'acheteur
type Buyer struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone,omitempty"`
	TaxID string `json:"taxId,omitempty"`
}

// CartItem est une ligne du panier soumis. Le prix unitaire est TTC.
type CartItem struct {
	ProductID string          `json:"productId" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	VatRate   decimal.Decimal `json:"vatRate"`
	Unit      string          `json:"unit,omitempty"`
}
