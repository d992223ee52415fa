package models

// DeliveryPoint décrit un point de retrait en consigne automatique (paczkomat)
type DeliveryPoint struct {
	ID      string `json:"id" binding:"required"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// ShippingAddress est l'instantané de livraison enregistré sur la commande.
// Pour un retrait en consigne, les champs Locker* sont remplis.
type ShippingAddress struct {
	Address
	Method        string `json:"method"`
	LockerID      string `json:"lockerId,omitempty"`
	LockerName    string `json:"lockerName,omitempty"`
	LockerAddress string `json:"lockerAddress,omitempty"`
}

const (
	ShippingMethodCourier = "courier"
	ShippingMethodLocker  = "locker"
)
