package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"

	"floorshop_back_end/internal/cache"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader est l'en-tête envoyé par le front pour dédoublonner un checkout
const IdempotencyHeader = "Idempotency-Key"

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency rejoue la réponse d'une soumission déjà traitée avec la même clé.
// Même clé avec un autre contenu, ou traitement en cours : 409.
// Seules les réponses 2xx sont mémorisées ; un refus (400, 429, 5xx) libère la clé
// pour que le client puisse corriger et resoumettre.
func Idempotency(store *cache.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		// Lire le body sans le consommer
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Requête illisible"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		sum := sha256.Sum256(bodyBytes)
		fingerprint := hex.EncodeToString(sum[:])

		ctx := context.Background()
		state, stored, err := store.Reserve(ctx, key, fingerprint)
		if err != nil {
			log.Printf("⚠️ Idempotence indisponible (%s): %v", key, err)
			c.Next()
			return
		}

		switch state {
		case cache.IdempotencyMismatch:
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Clé d'idempotence déjà utilisée pour une autre commande"})
			c.Abort()
			return
		case cache.IdempotencyInFlight:
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Commande en cours de traitement"})
			c.Abort()
			return
		case cache.IdempotencyCompleted:
			c.Header("Idempotent-Replayed", "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices || writer.body.Len() == 0 {
			if err := store.Release(ctx, key); err != nil {
				log.Printf("⚠️ Libération clé d'idempotence %s: %v", key, err)
			}
			return
		}
		if err := store.Complete(ctx, key, fingerprint, status, writer.body.Bytes()); err != nil {
			log.Printf("⚠️ Mémorisation réponse idempotente %s: %v", key, err)
		}
	}
}
