// Package metrics expose les compteurs Prometheus du tunnel de commande.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout regroupe les compteurs du checkout
type Checkout struct {
	OrdersPlaced       *prometheus.CounterVec
	GateRejections     *prometheus.CounterVec
	NumberFallbacks    prometheus.Counter
	SideEffectFailures *prometheus.CounterVec
	PersistenceErrors  prometheus.Counter
}

// NewCheckout enregistre les compteurs sur reg (prometheus.DefaultRegisterer en prod,
// un registre neuf dans les tests)
func NewCheckout(reg prometheus.Registerer) *Checkout {
	f := promauto.With(reg)
	return &Checkout{
		OrdersPlaced: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "orders_placed_total",
			Help:      "Commandes enregistrées, par statut initial.",
		}, []string{"status"}),
		GateRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "gate_rejections_total",
			Help:      "Checkouts rejetés par la vérification anti-spam, par code.",
		}, []string{"code"}),
		NumberFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "order_number_fallbacks_total",
			Help:      "Numéros de commande ERR- attribués après épuisement des tentatives.",
		}),
		SideEffectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "side_effect_failures_total",
			Help:      "Échecs des effets post-commit (notification, paiement, observateurs).",
		}, []string{"effect"}),
		PersistenceErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "persistence_errors_total",
			Help:      "Transactions de commande annulées.",
		}),
	}
}

// Noop retourne des compteurs enregistrés sur un registre jetable
func Noop() *Checkout {
	return NewCheckout(prometheus.NewRegistry())
}
