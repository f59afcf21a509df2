package verification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/charlesng35/storefront/pkg/mail"
)

var htmlBody = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; background: #f5f5f5; padding: 24px;">
    <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
      <h2 style="margin-top: 0; color: #111111;">{{ if .Sender }}{{ .Sender }} {{ end }}email verification</h2>
      <p style="color: #444444;">Use the code below to verify your email address.</p>
      <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #111111; text-align: center;">{{ .Code }}</p>
      <p style="color: #777777; font-size: 13px;">This code expires in {{ .Minutes }} minutes. If you did not request it, you can ignore this email.</p>
    </div>
  </body>
</html>`))

type codeView struct {
	Sender  string
	Code    string
	Minutes int
}

func renderMessage(cfg Config, to, code string, ttl time.Duration) (mail.Message, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, codeView{Sender: cfg.SenderName, Code: code, Minutes: minutes}); err != nil {
		return mail.Message{}, fmt.Errorf("verification: render email: %w", err)
	}

	return mail.Message{
		FromName: cfg.SenderName,
		To:       []string{to},
		Subject:  cfg.Subject,
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf("Your verification code is: %s. This code expires in %d minutes.", code, minutes),
	}, nil
}
