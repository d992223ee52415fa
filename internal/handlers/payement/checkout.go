package payement

import (
	"context"
	"log"
	"net/http"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// OrderPlacer est le service de checkout vu par le handler
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, sub models.CartSubmission, remoteIP string) (checkout.Result, error)
}

type CheckoutHandler struct {
	orders OrderPlacer
}

func NewCheckoutHandler(orders OrderPlacer) *CheckoutHandler {
	return &CheckoutHandler{orders: orders}
}

// CreateOrder transforme le panier soumis en commande
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	var sub models.CartSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Données invalides", "details": err.Error()})
		return
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), sub, c.ClientIP())
	if err != nil {
		if ve, ok := checkout.IsValidation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": ve.Message(), "code": ve.Code})
			return
		}
		if !checkout.IsPersistence(err) {
			log.Printf("❌ Erreur checkout inattendue: %v", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Impossible d'enregistrer la commande"})
		return
	}

	c.JSON(http.StatusCreated, result)
}
