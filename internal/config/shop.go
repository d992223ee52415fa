package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Politiques de contrôle du total déclaré par le client
const (
	TotalPolicyTrust  = "trust"
	TotalPolicyStrict = "strict"
)

// ShopSettings est l'instantané de configuration boutique utilisé par un checkout.
// Il est injecté dans le pipeline, jamais lu depuis un singleton en cours de requête.
type ShopSettings struct {
	Currency             string           `yaml:"currency"`
	OrderNumberPrefix    string           `yaml:"order_number_prefix"`
	SampleProductPrefix  string           `yaml:"sample_product_prefix"`
	OnlinePaymentMethods []string         `yaml:"online_payment_methods"`
	TotalPolicy          string           `yaml:"total_policy"`
	BaseShipping         map[string]int64 `yaml:"base_shipping"` // par type de commande, en grosze
	SideEffectTimeout    time.Duration    `yaml:"side_effect_timeout"`
	Captcha              CaptchaSettings  `yaml:"captcha"`
	Bank                 BankSettings     `yaml:"bank"`
}

// CaptchaSettings configure la vérification anti-spam (optionnelle)
type CaptchaSettings struct {
	Secret    string        `yaml:"secret"`
	VerifyURL string        `yaml:"verify_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// BankSettings sert au QR de virement joint aux commandes proforma
type BankSettings struct {
	AccountName string `yaml:"account_name"`
	IBAN        string `yaml:"iban"`
	BIC         string `yaml:"bic"`
}

// DefaultShopSettings retourne les réglages par défaut de la boutique
func DefaultShopSettings() ShopSettings {
	return ShopSettings{
		Currency:             "PLN",
		OrderNumberPrefix:    "ZM",
		SampleProductPrefix:  "sample-",
		OnlinePaymentMethods: []string{"tpay", "card"},
		TotalPolicy:          TotalPolicyTrust,
		BaseShipping: map[string]int64{
			"sample":     1500,
			"production": 3000,
		},
		SideEffectTimeout: 10 * time.Second,
		Captcha: CaptchaSettings{
			VerifyURL: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
			Timeout:   5 * time.Second,
		},
	}
}

// LoadShopSettings lit le fichier YAML des réglages boutique.
// Un fichier absent n'est pas une erreur : les valeurs par défaut s'appliquent.
// CAPTCHA_SECRET, s'il est défini, remplace le secret du fichier.
func LoadShopSettings(path string) (ShopSettings, error) {
	settings := DefaultShopSettings()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("⚠️ Réglages boutique %s introuvables, valeurs par défaut", path)
	case err != nil:
		return settings, fmt.Errorf("lecture réglages boutique: %w", err)
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("parsing réglages boutique: %w", err)
		}
	}

	if secret := os.Getenv("CAPTCHA_SECRET"); secret != "" {
		settings.Captcha.Secret = secret
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Validate vérifie la cohérence des réglages
func (s ShopSettings) Validate() error {
	if s.Currency == "" {
		return fmt.Errorf("currency est requis")
	}
	if s.OrderNumberPrefix == "" {
		return fmt.Errorf("order_number_prefix est requis")
	}
	if s.TotalPolicy != TotalPolicyTrust && s.TotalPolicy != TotalPolicyStrict {
		return fmt.Errorf("total_policy invalide: %q", s.TotalPolicy)
	}
	if s.SideEffectTimeout <= 0 {
		return fmt.Errorf("side_effect_timeout doit être positif")
	}
	if s.Captcha.Secret != "" && s.Captcha.VerifyURL == "" {
		return fmt.Errorf("captcha.verify_url est requis quand un secret est configuré")
	}
	return nil
}

// IsOnlinePayment indique si le moyen de paiement passe par la passerelle en ligne
func (s ShopSettings) IsOnlinePayment(method string) bool {
	return slices.Contains(s.OnlinePaymentMethods, method)
}
