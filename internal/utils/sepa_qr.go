package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"floorshop_back_end/internal/config"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// GenerateTransferQR génère le QR de virement (PNG) joint aux commandes proforma.
// EUR : format EPC (SEPA). PLN : format de la recommandation ZBP lu par les banques polonaises.
func GenerateTransferQR(bank config.BankSettings, amountMinor int64, currency, title string) ([]byte, error) {
	payload, err := TransferQRPayload(bank, amountMinor, currency, title)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(payload, qrcode.Medium, 256)
}

// TransferQRPayload construit le texte encodé dans le QR
func TransferQRPayload(bank config.BankSettings, amountMinor int64, currency, title string) (string, error) {
	iban := strings.ToUpper(strings.ReplaceAll(bank.IBAN, " ", ""))
	if iban == "" {
		return "", errors.New("IBAN non configuré")
	}
	if amountMinor <= 0 {
		return "", fmt.Errorf("montant invalide: %d", amountMinor)
	}

	switch strings.ToUpper(currency) {
	case "EUR":
		// format EPC basique
		return fmt.Sprintf("BCD\n002\n1\nSCT\n%s\n%s\n%s\nEUR%s\n\n\n%s",
			bank.BIC, truncate(bank.AccountName, 70), iban,
			decimal.New(amountMinor, -2).StringFixed(2), truncate(title, 140)), nil
	case "PLN":
		if amountMinor > 999999 {
			return "", fmt.Errorf("montant %d hors format ZBP", amountMinor)
		}
		account := strings.TrimPrefix(iban, "PL")
		return fmt.Sprintf("|PL|%s|%06d|%s|%s|||",
			account, amountMinor, truncate(bank.AccountName, 20), truncate(title, 32)), nil
	default:
		return "", fmt.Errorf("devise %s non prise en charge pour le QR de virement", currency)
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
