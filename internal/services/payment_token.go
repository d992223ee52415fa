package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PaymentClaims est le contenu du jeton de corrélation passé à la passerelle de paiement.
// Le callback de paiement le renvoie tel quel pour retrouver la commande.
type PaymentClaims struct {
	OrderID   string `json:"order_id"`
	Reference string `json:"reference"`
	jwt.RegisteredClaims
}

// PaymentTokenSigner signe les jetons de corrélation en HS256
type PaymentTokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewPaymentTokenSigner(secret string, ttl time.Duration) (*PaymentTokenSigner, error) {
	if secret == "" {
		return nil, errors.New("PAYMENT_TOKEN_SECRET manquant")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &PaymentTokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *PaymentTokenSigner) Sign(orderID, reference string) (string, error) {
	now := s.now()
	claims := PaymentClaims{
		OrderID:   orderID,
		Reference: reference,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   orderID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse vérifie la signature et l'expiration d'un jeton de corrélation
func (s *PaymentTokenSigner) Parse(tokenString string) (*PaymentClaims, error) {
	claims := &PaymentClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("jeton de paiement invalide: %w", err)
	}
	if claims.OrderID == "" {
		return nil, errors.New("jeton de paiement sans order_id")
	}
	return claims, nil
}
