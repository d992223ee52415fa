package utils

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/config"

	"github.com/wneessen/go-mail"
)

// MailNotifier envoie les notifications client par SMTP
type MailNotifier struct {
	cfg      config.SMTPConfig
	shopName string
	send     func(ctx context.Context, msg *mail.Msg) error
}

func NewMailNotifier(cfg config.SMTPConfig, shopName string) *MailNotifier {
	n := &MailNotifier{cfg: cfg, shopName: shopName}
	n.send = n.dialAndSend
	return n
}

// Notify construit puis envoie le message correspondant au template demandé
func (n *MailNotifier) Notify(ctx context.Context, notification checkout.Notification) error {
	msg, err := n.BuildMessage(notification)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", notification.Recipient)
	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("envoi e-mail %s: %w", notification.Template, err)
	}

	log.Printf("📧 Email %s envoyé: %s", notification.Template, notification.Recipient)
	return nil
}

// BuildMessage prépare le message sans l'envoyer
func (n *MailNotifier) BuildMessage(notification checkout.Notification) (*mail.Msg, error) {
	if notification.Template != checkout.TemplateOrderCreated {
		return nil, fmt.Errorf("template inconnu: %s", notification.Template)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(notification.Recipient); err != nil {
		return nil, err
	}

	data := OrderCreatedEmailData{
		ShopName:      n.shopName,
		CustomerName:  notification.Variables["customerName"],
		Reference:     notification.Variables["reference"],
		DisplayNumber: notification.Variables["displayNumber"],
		Total:         notification.Variables["total"],
		Link:          notification.Variables["link"],
	}

	var qr []byte
	if notification.Bank != nil {
		var err error
		qr, err = GenerateTransferQR(*notification.Bank, notification.AmountGross, notification.Currency, data.DisplayNumber)
		if err != nil {
			// le mail part quand même, sans QR
			log.Printf("⚠️ QR de virement impossible pour %s: %v", data.DisplayNumber, err)
		} else {
			data.Bank = notification.Bank
		}
	}

	html, err := RenderOrderCreatedEmail(data)
	if err != nil {
		return nil, err
	}

	msg.Subject(OrderCreatedSubject(n.shopName, data.DisplayNumber))
	msg.SetBodyString(mail.TypeTextHTML, html)

	if data.Bank != nil {
		if err := msg.AttachReader("przelew-"+data.DisplayNumber+".png", bytes.NewReader(qr)); err != nil {
			return nil, fmt.Errorf("pièce jointe QR: %w", err)
		}
	}

	return msg, nil
}

func (n *MailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
