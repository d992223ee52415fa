package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis ouvre la connexion Redis et la vérifie
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("REDIS_HOST non configuré")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0, // Base de données par défaut
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test de connexion
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("impossible de se connecter à Redis: %v", err)
	}

	log.Println("✅ Redis connecté avec succès")
	return client, nil
}

// --- Numérotation des commandes ---

// LastNumberFunc retourne la dernière valeur séquentielle commitée (amorçage du compteur)
type LastNumberFunc func(ctx context.Context) (int64, error)

// RedisNumberSource distribue les numéros de commande avec INCR : un seul écrivain,
// deux checkouts ne reçoivent jamais le même candidat.
type RedisNumberSource struct {
	client *redis.Client
	key    string
	prefix string
	last   LastNumberFunc

	mu     sync.Mutex
	seeded bool
}

func NewRedisNumberSource(client *redis.Client, prefix string, last LastNumberFunc) *RedisNumberSource {
	return &RedisNumberSource{
		client: client,
		key:    "order_number:" + prefix,
		prefix: prefix,
		last:   last,
	}
}

func (s *RedisNumberSource) Next(ctx context.Context) (string, error) {
	if err := s.seed(ctx); err != nil {
		return "", err
	}
	seq, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("incr %s: %w", s.key, err)
	}
	if seq == 1 && s.last != nil {
		// clé absente (éviction, flush) : INCR est reparti de zéro
		if seq, err = s.reseed(ctx); err != nil {
			return "", err
		}
	}
	return checkout.FormatDisplayNumber(s.prefix, seq), nil
}

// Remonte le compteur au dernier numéro commité puis incrémente, en une seule opération
var reseedScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], ARGV[1])
end
return redis.call('INCR', KEYS[1])
`)

func (s *RedisNumberSource) reseed(ctx context.Context) (int64, error) {
	last, err := s.last(ctx)
	if err != nil {
		return 0, fmt.Errorf("réamorçage compteur: %w", err)
	}
	if last < 1 {
		return 1, nil
	}
	seq, err := reseedScript.Run(ctx, s.client, []string{s.key}, last).Int64()
	if err != nil {
		return 0, fmt.Errorf("réamorçage compteur: %w", err)
	}
	log.Printf("⚠️ Compteur %s perdu, réamorcé depuis la base (%d)", s.key, last)
	return seq, nil
}

// seed aligne le compteur sur la base au premier appel, sans écraser un compteur existant
func (s *RedisNumberSource) seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded || s.last == nil {
		return nil
	}

	last, err := s.last(ctx)
	if err != nil {
		return fmt.Errorf("amorçage compteur: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key, last, 0).Result()
	if err != nil {
		return fmt.Errorf("amorçage compteur: %w", err)
	}
	if created {
		log.Printf("🔢 Compteur %s amorcé à %d", s.key, last)
	}
	s.seeded = true
	return nil
}

// --- Rate limit ---

// RateLimiter compte les requêtes par clé sur une fenêtre fixe
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// RateDecision est le résultat d'un Allow
type RateDecision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

func NewRateLimiter(client *redis.Client, prefix string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, id string) (RateDecision, error) {
	key := r.prefix + ":" + id

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return RateDecision{Allowed: true, Limit: r.limit}, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return RateDecision{Allowed: true, Limit: r.limit}, err
		}
	}

	d := RateDecision{Limit: r.limit, Remaining: r.limit - count}
	if count <= r.limit {
		d.Allowed = true
		return d, nil
	}

	d.Remaining = 0
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = r.window
	}
	d.RetryAfter = ttl
	return d, nil
}

// --- Idempotence ---

// IdempotencyState décrit l'état d'une clé Idempotency-Key
type IdempotencyState int

const (
	IdempotencyReserved IdempotencyState = iota
	IdempotencyInFlight
	IdempotencyCompleted
	IdempotencyMismatch
)

// StoredResponse est la réponse rejouée pour une clé déjà traitée
type StoredResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Pending     bool            `json:"pending"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// IdempotencyStore réserve les clés et mémorise la réponse associée
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	return "idempotency:checkout:" + key
}

// Reserve tente de prendre la clé. Si elle existe déjà, retourne son état et la réponse stockée.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (IdempotencyState, *StoredResponse, error) {
	pending, _ := json.Marshal(StoredResponse{Fingerprint: fingerprint, Pending: true})

	ok, err := s.client.SetNX(ctx, idempotencyKey(key), pending, s.ttl).Result()
	if err != nil {
		return IdempotencyReserved, nil, err
	}
	if ok {
		return IdempotencyReserved, nil, nil
	}

	raw, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// expirée entre SETNX et GET
		return s.Reserve(ctx, key, fingerprint)
	}
	if err != nil {
		return IdempotencyReserved, nil, err
	}

	var stored StoredResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return IdempotencyReserved, nil, fmt.Errorf("entrée idempotence illisible: %w", err)
	}

	switch {
	case stored.Fingerprint != fingerprint:
		return IdempotencyMismatch, &stored, nil
	case stored.Pending:
		return IdempotencyInFlight, &stored, nil
	default:
		return IdempotencyCompleted, &stored, nil
	}
}

// Complete mémorise la réponse finale pour rejeu
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, status int, body []byte) error {
	stored := StoredResponse{Fingerprint: fingerprint, Status: status, Body: json.RawMessage(body)}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyKey(key), data, s.ttl).Err()
}

// Release libère la clé (réponse non rejouable, le client peut réessayer)
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKey(key)).Err()
}
