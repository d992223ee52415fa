package models

// Address est l'instantané d'une adresse de facturation ou de livraison.
// Il est stocké tel quel (JSON) sur la commande et le client, sans normalisation.
type Address struct {
	Name        string `json:"name,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Street      string `json:"street" binding:"required"`
	City        string `json:"city" binding:"required"`
	PostalCode  string `json:"postalCode" binding:"required"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// IsZero indique si l'adresse n'a pas été renseignée
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.PostalCode == ""
}
