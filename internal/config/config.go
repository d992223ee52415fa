package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load charge le fichier .env s'il existe, sinon on garde l'environnement système
func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// AppConfig regroupe la configuration d'infrastructure lue depuis l'environnement
type AppConfig struct {
	Port             string
	ShopName         string
	PublicBaseURL    string
	ShopSettingsPath string
	NumberingSource  string // db | redis
	CORSOrigins      []string

	Postgres PostgresConfig
	Redis    RedisConfig
	Scylla   ScyllaConfig
	Elastic  ElasticConfig
	RabbitMQ RabbitMQConfig
	SMTP     SMTPConfig
	Minio    MinioConfig

	StripeSecretKey    string
	PaymentTokenSecret string
}

type PostgresConfig struct {
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
}

type ElasticConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

type RabbitMQConfig struct {
	URL        string
	OrderQueue string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// FromEnv construit la configuration à partir des variables d'environnement
func FromEnv() AppConfig {
	pgPort, _ := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))

	var scyllaHosts []string
	if raw := os.Getenv("SCYLLA_HOSTS"); raw != "" {
		scyllaHosts = strings.Split(raw, ",")
	}

	publicBaseURL := strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/")
	corsOrigins := []string{publicBaseURL}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		corsOrigins = strings.Split(raw, ",")
	}

	return AppConfig{
		Port:             getEnv("PORT", "8080"),
		ShopName:         getEnv("SHOP_NAME", "Floorshop"),
		PublicBaseURL:    publicBaseURL,
		ShopSettingsPath: getEnv("SHOP_SETTINGS_PATH", "shop.yaml"),
		NumberingSource:  getEnv("NUMBERING_SOURCE", "db"),
		CORSOrigins:      corsOrigins,
		Postgres: PostgresConfig{
			DSN:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     pgPort,
			Database: getEnv("POSTGRES_DATABASE", "shop"),
			Username: getEnv("POSTGRES_USERNAME", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_HOST"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Scylla: ScyllaConfig{
			Hosts:    scyllaHosts,
			Keyspace: os.Getenv("SCYLLA_KS_AUDIT_KEYSPACE"),
			Username: os.Getenv("SCYLLA_KS_AUDIT_ROLE"),
			Password: os.Getenv("SCYLLA_KS_AUDIT_PASSWORD"),
		},
		Elastic: ElasticConfig{
			URL:      os.Getenv("ELASTIC_URL"),
			Username: os.Getenv("ELASTIC_USER"),
			Password: os.Getenv("ELASTIC_PASSWORD"),
			Index:    getEnv("ELASTIC_ORDERS_INDEX", "orders"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			OrderQueue: getEnv("RABBITMQ_ORDER_QUEUE", "dwh.orders.v2"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@example.com"),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_ORDERS_BUCKET", "orders-archive"),
			Secure:    os.Getenv("MINIO_SECURE") == "true",
		},
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		PaymentTokenSecret: os.Getenv("PAYMENT_TOKEN_SECRET"),
	}
}

// PostgresDSN retourne DATABASE_URL ou un DSN construit depuis POSTGRES_*
func (c PostgresConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.Host, c.Username, c.Password, c.Database, c.Port)
}

// Validate vérifie les réglages indispensables au démarrage du serveur
func (c AppConfig) Validate() error {
	if c.NumberingSource != "db" && c.NumberingSource != "redis" {
		return fmt.Errorf("NUMBERING_SOURCE invalide: %q (db ou redis)", c.NumberingSource)
	}
	if c.NumberingSource == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("NUMBERING_SOURCE=redis exige REDIS_HOST")
	}
	if c.StripeSecretKey != "" && c.PaymentTokenSecret == "" {
		return fmt.Errorf("PAYMENT_TOKEN_SECRET manquant alors que Stripe est configuré")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
