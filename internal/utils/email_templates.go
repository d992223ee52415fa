package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"floorshop_back_end/internal/config"
)

// OrderCreatedEmailData alimente le template ORDER_CREATED
type OrderCreatedEmailData struct {
	ShopName      string
	CustomerName  string
	Reference     string
	DisplayNumber string
	Total         string
	Link          string
	Bank          *config.BankSettings
}

func OrderCreatedSubject(shopName, displayNumber string) string {
	return fmt.Sprintf("📦 Commande %s bien reçue - %s", displayNumber, shopName)
}

var orderCreatedTemplate = template.Must(template.New("order_created").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Commande {{.DisplayNumber}}</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Merci pour votre commande !</h2>
		<p>Bonjour {{.CustomerName}},</p>
		<p>Nous avons bien reçu votre commande <strong>{{.DisplayNumber}}</strong> (référence {{.Reference}}).</p>
		<p style="font-size: 18px;">Montant total : <strong>{{.Total}}</strong></p>
		{{- if .Bank}}
		<h3>Paiement par virement</h3>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<tr><td style="padding: 6px; border: 1px solid #ddd;">Bénéficiaire</td><td style="padding: 6px; border: 1px solid #ddd;">{{.Bank.AccountName}}</td></tr>
			<tr><td style="padding: 6px; border: 1px solid #ddd;">IBAN</td><td style="padding: 6px; border: 1px solid #ddd;">{{.Bank.IBAN}}</td></tr>
			{{- if .Bank.BIC}}
			<tr><td style="padding: 6px; border: 1px solid #ddd;">BIC</td><td style="padding: 6px; border: 1px solid #ddd;">{{.Bank.BIC}}</td></tr>
			{{- end}}
			<tr><td style="padding: 6px; border: 1px solid #ddd;">Titre</td><td style="padding: 6px; border: 1px solid #ddd;">{{.DisplayNumber}}</td></tr>
		</table>
		<p>Le QR code joint permet de pré-remplir le virement depuis votre application bancaire.</p>
		{{- end}}
		<p><a href="{{.Link}}" style="display: inline-block; padding: 12px 30px; background-color: #8b5e34; color: #ffffff; text-decoration: none; border-radius: 8px;">Suivre ma commande</a></p>
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe {{.ShopName}}</strong>
		</p>
	</div>
</body>
</html>`))

// RenderOrderCreatedEmail génère le HTML du mail de confirmation de commande
func RenderOrderCreatedEmail(data OrderCreatedEmailData) (string, error) {
	var buf bytes.Buffer
	if err := orderCreatedTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendu template order_created: %w", err)
	}
	return buf.String(), nil
}
