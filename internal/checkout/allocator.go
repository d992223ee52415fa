package checkout

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxAttempts borne la boucle d'attribution du numéro de commande
	DefaultMaxAttempts = 3
	// DefaultRetryDelay est l'attente entre deux tentatives
	DefaultRetryDelay = 100 * time.Millisecond
	// FallbackPrefix marque les numéros attribués en mode dégradé, à corriger à la main
	FallbackPrefix = "ERR-"
)

// NumberSource propose le prochain numéro de commande candidat.
// La lecture porte sur l'état commité : elle ne voit pas les attributions en cours.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// NumberChecker vérifie, dans la transaction courante, si un numéro est déjà pris
type NumberChecker interface {
	DisplayNumberTaken(ctx context.Context, number string) (bool, error)
}

// Allocation est le résultat d'une attribution
type Allocation struct {
	Number   string
	Attempts int
	Fallback bool
}

// Allocator attribue les numéros de commande lisibles.
// La colonne n'a pas de contrainte d'unicité : l'unicité est best-effort.
type Allocator struct {
	source      NumberSource
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
	onFallback  func()
}

// AllocatorOption personnalise un Allocator
type AllocatorOption func(*Allocator)

func WithMaxAttempts(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) AllocatorOption {
	return func(a *Allocator) { a.retryDelay = d }
}

func WithClock(now func() time.Time) AllocatorOption {
	return func(a *Allocator) { a.now = now }
}

// WithFallbackHook est appelé à chaque numéro ERR- (métrique, alerte)
func WithFallbackHook(fn func()) AllocatorOption {
	return func(a *Allocator) { a.onFallback = fn }
}

func NewAllocator(source NumberSource, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		source:      source,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate ne retourne jamais d'erreur : en dernier recours il produit un numéro ERR-.
// Une erreur de la source ou du contrôle compte comme une tentative ratée.
func (a *Allocator) Allocate(ctx context.Context, checker NumberChecker) Allocation {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return a.fallback(attempt - 1)
			case <-time.After(a.retryDelay):
			}
		}

		candidate, err := a.source.Next(ctx)
		if err != nil {
			log.Printf("⚠️ Numéro de commande: source indisponible (tentative %d/%d): %v", attempt, a.maxAttempts, err)
			continue
		}

		taken, err := checker.DisplayNumberTaken(ctx, candidate)
		if err != nil {
			log.Printf("⚠️ Numéro de commande: contrôle de %s impossible (tentative %d/%d): %v", candidate, attempt, a.maxAttempts, err)
			continue
		}
		if !taken {
			return Allocation{Number: candidate, Attempts: attempt}
		}

		log.Printf("🔁 Numéro de commande %s déjà pris (tentative %d/%d)", candidate, attempt, a.maxAttempts)
	}

	return a.fallback(a.maxAttempts)
}

func (a *Allocator) fallback(attempts int) Allocation {
	number := FallbackNumber(a.now())
	log.Printf("❌ Numéro de commande: %d tentatives épuisées, numéro de secours %s à corriger manuellement", attempts, number)
	if a.onFallback != nil {
		a.onFallback()
	}
	return Allocation{Number: number, Attempts: attempts, Fallback: true}
}

// FallbackNumber construit un numéro de secours ERR-<année>-<6 caractères aléatoires>
func FallbackNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s%d-%s", FallbackPrefix, now.Year(), suffix)
}

// FormatDisplayNumber formate un numéro séquentiel : ZM-000042
func FormatDisplayNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}

// ParseDisplayNumber extrait la partie séquentielle d'un numéro formaté par FormatDisplayNumber
func ParseDisplayNumber(prefix, number string) (int64, bool) {
	rest, ok := strings.CutPrefix(number, prefix+"-")
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
