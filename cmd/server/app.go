package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"floorshop_back_end/internal/cache"
	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/database"
	"floorshop_back_end/internal/handlers/payement"
	"floorshop_back_end/internal/metrics"
	"floorshop_back_end/internal/middleware"
	"floorshop_back_end/internal/routes"
	"floorshop_back_end/internal/services"
	"floorshop_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

// Délai laissé aux requêtes en cours (et à leurs effets) à l'arrêt
const shutdownTimeout = 30 * time.Second

func loadConfig() (config.AppConfig, config.ShopSettings, error) {
	config.Load()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, config.ShopSettings{}, err
	}

	settings, err := config.LoadShopSettings(cfg.ShopSettingsPath)
	if err != nil {
		return cfg, settings, err
	}
	if err := settings.Validate(); err != nil {
		return cfg, settings, fmt.Errorf("réglages boutique invalides: %w", err)
	}
	return cfg, settings, nil
}

func migrate() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.ConnectPostgres(cfg.Postgres)
	if err != nil {
		return err
	}
	defer database.ClosePostgres(db)

	if err := checkout.Migrate(db); err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	log.Println("✅ Tables commandes à jour")
	return nil
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, settings, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.ConnectPostgres(cfg.Postgres)
	if err != nil {
		return err
	}
	defer database.ClosePostgres(db)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			if cfg.NumberingSource == "redis" {
				return err
			}
			log.Printf("⚠️ Redis indisponible, ni limite de débit ni idempotence: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	m := metrics.NewCheckout(prometheus.DefaultRegisterer)

	source := numberSource(cfg, settings, db, redisClient)
	allocator := checkout.NewAllocator(source)
	repo := checkout.NewGormRepository(db, allocator, checkout.WithIsolation(sql.LevelReadCommitted))

	gate := checkout.NewGate(services.NewTurnstileVerifier(&http.Client{Timeout: 10 * time.Second}), m)

	effects, closeEffects := buildSideEffects(ctx, cfg, m)
	defer closeEffects()

	service := checkout.NewService(checkout.Deps{
		Settings:    func() config.ShopSettings { return settings },
		Gate:        gate,
		Repository:  repo,
		SideEffects: effects,
		Metrics:     m,
	})

	deps := routes.Deps{
		Checkout:       payement.NewCheckoutHandler(service),
		AllowedOrigins: cfg.CORSOrigins,
		Gatherer:       prometheus.DefaultGatherer,
	}
	if redisClient != nil {
		deps.RateLimiter = cache.NewRateLimiter(redisClient, "checkout", middleware.CheckoutMaxRequests, middleware.CheckoutWindow)
		deps.Idempotency = cache.NewIdempotencyStore(redisClient, 0)
	}

	r := gin.Default()
	routes.RegisterRoutes(r, deps)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("🚀 Serveur boutique lancé sur le port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Arrêt demandé, on termine les commandes en cours...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("arrêt du serveur: %w", err)
	}
	log.Println("✅ Serveur arrêté proprement")
	return nil
}

// numberSource choisit la source des numéros de commande.
// En mode redis le compteur est amorcé depuis le dernier numéro commité en base.
func numberSource(cfg config.AppConfig, settings config.ShopSettings, db *gorm.DB, redisClient *redis.Client) checkout.NumberSource {
	dbSource := checkout.NewGormNumberSource(db, settings.OrderNumberPrefix)
	if cfg.NumberingSource == "redis" && redisClient != nil {
		log.Println("✅ Numérotation des commandes via Redis")
		return cache.NewRedisNumberSource(redisClient, settings.OrderNumberPrefix, dbSource.Last)
	}
	return dbSource
}

// buildSideEffects branche chaque backend configuré. Un backend absent ou injoignable
// est simplement ignoré : la commande reste acceptée sans cet effet.
func buildSideEffects(ctx context.Context, cfg config.AppConfig, m *metrics.Checkout) (*checkout.SideEffects, func()) {
	var (
		notifier  checkout.Notifier
		gateway   checkout.PaymentGateway
		signer    checkout.TokenSigner
		observers []checkout.OrderObserver
		closers   []func()
	)

	if cfg.SMTP.Host != "" {
		notifier = utils.NewMailNotifier(cfg.SMTP, cfg.ShopName)
		log.Println("✅ Notifications mail activées")
	} else {
		log.Println("⚠️ SMTP_HOST absent, aucun mail de confirmation")
	}

	if cfg.StripeSecretKey != "" {
		paymentSigner, err := services.NewPaymentTokenSigner(cfg.PaymentTokenSecret, 0)
		if err != nil {
			log.Printf("⚠️ Paiement en ligne désactivé: %v", err)
		} else {
			stripe.Key = cfg.StripeSecretKey
			gateway = services.NewStripeGateway()
			signer = paymentSigner
			log.Println("✅ Stripe initialisé")
		}
	} else {
		log.Println("⚠️ STRIPE_SECRET_KEY absent, pas de session de paiement")
	}

	if len(cfg.Scylla.Hosts) > 0 {
		session, err := database.ConnectScylla(cfg.Scylla)
		if err != nil {
			log.Printf("⚠️ Audit désactivé: %v", err)
		} else {
			observers = append(observers, utils.NewOrderAuditLogger(session))
			closers = append(closers, session.Close)
		}
	}

	if cfg.Elastic.URL != "" {
		client, err := database.ConnectElastic(cfg.Elastic)
		if err != nil {
			log.Printf("⚠️ Indexation CRM désactivée: %v", err)
		} else {
			observers = append(observers, services.NewOrderIndexer(client, cfg.Elastic.Index))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := services.NewOrderEventPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Printf("⚠️ Événements DWH désactivés: %v", err)
		} else {
			observers = append(observers, publisher)
			closers = append(closers, publisher.Close)
			log.Printf("✅ Événements commande publiés sur %s", cfg.RabbitMQ.OrderQueue)
		}
	}

	if cfg.Minio.Endpoint != "" {
		client, err := database.ConnectMinio(ctx, cfg.Minio)
		if err != nil {
			log.Printf("⚠️ Archivage des commandes désactivé: %v", err)
		} else {
			observers = append(observers, services.NewOrderArchiver(client, cfg.Minio.Bucket))
		}
	}

	effects := checkout.NewSideEffects(checkout.SideEffectsConfig{
		Notifier:      notifier,
		Gateway:       gateway,
		Signer:        signer,
		Observers:     observers,
		PublicBaseURL: cfg.PublicBaseURL,
		Metrics:       m,
	})

	return effects, func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}
