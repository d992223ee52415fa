package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
)

// StripeGateway ouvre une Checkout Session Stripe et renvoie son URL
type StripeGateway struct {
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeGateway utilise la clé globale stripe.Key (initialisée au démarrage)
func NewStripeGateway() *StripeGateway {
	return &StripeGateway{newSession: session.New}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req checkout.PaymentSessionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.AmountGross <= 0 {
		return "", fmt.Errorf("montant à payer invalide: %d", req.AmountGross)
	}

	params := buildSessionParams(req)
	// le délai de l'effet s'applique à la requête HTTP Stripe elle-même
	params.Context = ctx

	sess, err := g.newSession(params)
	if err != nil {
		return "", fmt.Errorf("stripe: %w", err)
	}
	if sess == nil || sess.URL == "" {
		return "", errors.New("stripe: session sans URL de redirection")
	}
	return sess.URL, nil
}

func buildSessionParams(req checkout.PaymentSessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountGross),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}
	if req.PaymentMethod == models.PaymentMethodCard {
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
	}

	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("correlation_token", req.CorrelationToken)
	params.AddMetadata("buyer_name", req.BuyerName)
	return params
}
