package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"floorshop_back_end/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// =============================================
// POSTGRES (commandes, clients, journal)
// =============================================

// ConnectPostgres ouvre le pool GORM de la base commandes
func ConnectPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connexion Postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("récupération sql.DB: %w", err)
	}

	// Paramètres du pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping Postgres: %w", err)
	}

	log.Println("✅ Connecté à Postgres")
	return db, nil
}

// ClosePostgres ferme le pool
func ClosePostgres(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// =============================================
// SCYLLA DB (journal d'audit)
// =============================================

// ConnectScylla ouvre la session du keyspace d'audit
func ConnectScylla(cfg config.ScyllaConfig) (*gocql.Session, error) {
	if len(cfg.Hosts) == 0 || cfg.Keyspace == "" {
		return nil, fmt.Errorf("SCYLLA_HOSTS / SCYLLA_KS_AUDIT_KEYSPACE non configurés")
	}

	session, err := newScyllaCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %v", cfg.Keyspace, err)
	}

	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s' (utilisateur: %s)", cfg.Keyspace, cfg.Username)
	return session, nil
}

func newScyllaCluster(cfg config.ScyllaConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = 1 * time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	// Politique de sélection d'hôtes optimisée
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// =============================================
// ELASTICSEARCH (index CRM des commandes)
// =============================================

// ConnectElastic crée le client et vérifie le cluster
func ConnectElastic(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch: %s", res.String())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO (archives des commandes)
// =============================================

// ConnectMinio crée le client et s'assure que le bucket d'archives existe
func ConnectMinio(ctx context.Context, cfg config.MinioConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT non configuré")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("création client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("✅ Bucket MinIO créé: %s", cfg.Bucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.Endpoint)
	return client, nil
}
