package checkout

import (
	"errors"
	"fmt"
)

// Codes de ValidationError renvoyés tels quels au client
const (
	CodeMissingChallengeToken = "missing_challenge_token"
	CodeChallengeFailed       = "challenge_failed"
	CodeEmptyCart             = "empty_cart"
	CodeInvalidItem           = "invalid_item"
	CodeInvalidPaymentMethod  = "invalid_payment_method"
	CodeTotalMismatch         = "total_mismatch"
)

// Erreurs de forme du panier, exposées comme ValidationError
var (
	ErrEmptyCart   = errors.New("panier vide")
	ErrInvalidItem = errors.New("article invalide")
)

var validationMessages = map[string]string{
	CodeMissingChallengeToken: "Vérification anti-spam manquante, veuillez réessayer",
	CodeChallengeFailed:       "Vérification anti-spam échouée, veuillez réessayer",
	CodeEmptyCart:             "Panier vide",
	CodeInvalidItem:           "Article du panier invalide",
	CodeInvalidPaymentMethod:  "Moyen de paiement non pris en charge",
	CodeTotalMismatch:         "Le montant total ne correspond pas au panier",
}

// ValidationError rejette la soumission avant toute écriture. Récupérable en resoumettant.
type ValidationError struct {
	Code   string
	Detail string
	Err    error
}

func NewValidationError(code string) *ValidationError {
	return &ValidationError{Code: code}
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("validation %s: %s", e.Code, e.Detail)
	}
	return "validation " + e.Code
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Message retourne le message destiné à l'utilisateur
func (e *ValidationError) Message() string {
	if msg, ok := validationMessages[e.Code]; ok {
		return msg
	}
	return "Données invalides"
}

// PersistenceError signale l'échec de la transaction de commande.
// Rien n'a été écrit ; le client ne reçoit qu'un message générique.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "impossible d'enregistrer la commande: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation indique si err est (ou enveloppe) une ValidationError
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsPersistence indique si err est (ou enveloppe) une PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
