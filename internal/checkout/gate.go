package checkout

import (
	"context"
	"log"
	"strings"

	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/metrics"
)

// ChallengeVerifier interroge le service de vérification anti-spam
type ChallengeVerifier interface {
	Verify(ctx context.Context, verifyURL, secret, token, remoteIP string) (bool, error)
}

// Gate est la seule précondition synchrone du checkout : elle tourne avant toute écriture
type Gate struct {
	verifier ChallengeVerifier
	metrics  *metrics.Checkout
}

func NewGate(verifier ChallengeVerifier, m *metrics.Checkout) *Gate {
	if m == nil {
		m = metrics.Noop()
	}
	return &Gate{verifier: verifier, metrics: m}
}

// Check admet la requête si aucun secret n'est configuré.
// Sinon le jeton est obligatoire et vérifié à distance ; timeout et erreur réseau rejettent.
func (g *Gate) Check(ctx context.Context, settings config.CaptchaSettings, token, remoteIP string) error {
	if settings.Secret == "" {
		return nil
	}

	if strings.TrimSpace(token) == "" {
		return g.reject(CodeMissingChallengeToken, "")
	}

	if g.verifier == nil {
		return g.reject(CodeChallengeFailed, "aucun vérificateur configuré")
	}

	vctx := ctx
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	ok, err := g.verifier.Verify(vctx, settings.VerifyURL, settings.Secret, token, remoteIP)
	if err != nil {
		log.Printf("❌ Vérification anti-spam impossible: %v", err)
		return g.reject(CodeChallengeFailed, err.Error())
	}
	if !ok {
		return g.reject(CodeChallengeFailed, "jeton refusé")
	}
	return nil
}

func (g *Gate) reject(code, detail string) error {
	g.metrics.GateRejections.WithLabelValues(code).Inc()
	log.Printf("⚠️ Checkout rejeté par l'anti-spam: %s", code)
	return &ValidationError{Code: code, Detail: detail}
}
