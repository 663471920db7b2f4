package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/royalartisanat/shop-api/internal/config"
)

var orderMailTmpl = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Nouvelle commande {{.OrderID}}</h2>
    <p><strong>Client:</strong> {{.CustomerName}}<br>
       <strong>Téléphone:</strong> {{.CustomerPhone}}<br>
       <strong>Gouvernorat:</strong> {{.Governorate}}{{if .Address}}<br>
       <strong>Adresse:</strong> {{.Address}}{{end}}<br>
       <strong>Date:</strong> {{.OrderDate}}</p>
    <table border="1" cellpadding="6" cellspacing="0">
      <tr><th>Produit</th><th>Quantité</th><th>Prix unitaire</th></tr>
      {{range .Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{printf "%.3f" .Price}} TND</td></tr>
      {{end}}
    </table>
    <p><strong>Total: {{printf "%.3f" .TotalAmount}} TND</strong></p>
    <p>Veuillez contacter le client pour confirmer la commande et organiser la livraison.</p>
  </body>
</html>`))

type SMTPNotifier struct {
	cfg config.SMTPConfig
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (s *SMTPNotifier) OrderPlaced(ctx context.Context, n OrderNotification) error {
	var body bytes.Buffer
	if err := orderMailTmpl.Execute(&body, n); err != nil {
		return fmt.Errorf("notify: failed to render order mail: %w", err)
	}

	msg := []byte(
		"From: " + s.cfg.User + "\r\n" +
			"To: " + s.cfg.OrdersTo + "\r\n" +
			"Subject: Nouvelle commande " + n.OrderID + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body.String(),
	)

	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.User, []string{s.cfg.OrdersTo}, msg); err != nil {
		return fmt.Errorf("notify: smtp send failed: %w", err)
	}
	return nil
}
