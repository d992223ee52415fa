package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/models"

	"github.com/minio/minio-go/v7"
)

// DefaultArchiveBucket reçoit les instantanés JSON des commandes
const DefaultArchiveBucket = "orders-archive"

type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// OrderArchiver dépose une copie figée de chaque commande dans MinIO,
// telle qu'elle a été écrite en base au moment du checkout
type OrderArchiver struct {
	client objectPutter
	bucket string
}

func NewOrderArchiver(client *minio.Client, bucket string) *OrderArchiver {
	return newOrderArchiver(client, bucket)
}

func newOrderArchiver(client objectPutter, bucket string) *OrderArchiver {
	if bucket == "" {
		bucket = DefaultArchiveBucket
	}
	return &OrderArchiver{client: client, bucket: bucket}
}

type orderSnapshot struct {
	Order           models.Order `json:"order"`
	Buyer           models.Buyer `json:"buyer"`
	CustomerCreated bool         `json:"customer_created"`
	NeedsReview     bool         `json:"needs_review"`
}

// ObjectKey range les instantanés par année/mois de création
func ObjectKey(placed checkout.PlacedOrder) string {
	order := placed.Order
	return fmt.Sprintf("%s/%s-%s.json", order.CreatedAt.UTC().Format("2006/01"), order.DisplayNumber, order.ID)
}

func (a *OrderArchiver) Name() string { return "archive" }

func (a *OrderArchiver) OrderCreated(ctx context.Context, placed checkout.PlacedOrder) error {
	data, err := json.Marshal(orderSnapshot{
		Order:           placed.Order,
		Buyer:           placed.Buyer,
		CustomerCreated: placed.CustomerCreated,
		NeedsReview:     placed.Fallback,
	})
	if err != nil {
		return fmt.Errorf("encodage instantané commande: %w", err)
	}

	key := ObjectKey(placed)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"reference":      placed.Order.Reference,
				"display-number": placed.Order.DisplayNumber,
			},
		})
	if err != nil {
		return fmt.Errorf("dépôt MinIO %s/%s: %w", a.bucket, key, err)
	}

	log.Printf("🗄️ Commande archivée: %s/%s", a.bucket, key)
	return nil
}
