package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"time"
)

type IMailService interface {
	SendPaymentConfirmation(to, orderNumber string, totalMinor int64, currency string, pointsEarned int64) error
	SendPaymentInstructions(to, orderNumber string, totalMinor int64, currency string, bankDetails string) error
}

// SMTPConfig holds SMTP + branding config.
type SMTPConfig struct {
	Host       string // e.g. "smtp.gmail.com"
	Port       int    // 587 for STARTTLS; 465 with UseSSL=true for SMTPS
	Username   string
	Password   string
	From       string
	FromName   string
	UseSSL     bool
	RequireTLS bool

	AppName string
}

type smtpMailService struct {
	cfg     SMTPConfig
	htmlTpl *template.Template
	textTpl *template.Template
}

func NewSMTPMailService(cfg SMTPConfig) (IMailService, error) {
	htmlTpl := template.Must(template.New("mailHTML").Parse(baseHTMLTemplate))
	textTpl := template.Must(template.New("mailText").Parse(plainTextTemplate))

	return &smtpMailService{
		cfg:     cfg,
		htmlTpl: htmlTpl,
		textTpl: textTpl,
	}, nil
}

type emailData struct {
	Title   string
	Intro   string
	Detail  string
	AppName string
	Year    int
}

func formatAmount(totalMinor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", totalMinor/100, totalMinor%100, currency)
}

func (s *smtpMailService) SendPaymentConfirmation(to, orderNumber string, totalMinor int64, currency string, pointsEarned int64) error {
	subject := fmt.Sprintf("Payment received for order %s", orderNumber)
	intro := fmt.Sprintf("We received your payment of %s for order %s. Your booking is confirmed.",
		formatAmount(totalMinor, currency), orderNumber)
	detail := ""
	if pointsEarned > 0 {
		detail = fmt.Sprintf("You earned %d loyalty points with this order.", pointsEarned)
	}

	html, text, err := s.renderEmail(emailData{
		Title:   subject,
		Intro:   intro,
		Detail:  detail,
		AppName: s.cfg.AppName,
		Year:    time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return s.send(to, subject, html, text)
}

func (s *smtpMailService) SendPaymentInstructions(to, orderNumber string, totalMinor int64, currency string, bankDetails string) error {
	subject := fmt.Sprintf("Payment instructions for order %s", orderNumber)
	intro := fmt.Sprintf("To complete order %s, transfer %s using the details below. Include the order number in the transfer title.",
		orderNumber, formatAmount(totalMinor, currency))

	html, text, err := s.renderEmail(emailData{
		Title:   subject,
		Intro:   intro,
		Detail:  bankDetails,
		AppName: s.cfg.AppName,
		Year:    time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return s.send(to, subject, html, text)
}

const baseHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; padding: 0; background: #f8fafc; color: #0f172a;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; }
    .wrapper { width: 100%; padding: 40px 16px; box-sizing: border-box; }
    .container { max-width: 600px; margin: 0 auto; background: #ffffff;
      border-radius: 12px; overflow: hidden;
      box-shadow: 0 10px 30px rgba(0, 0, 0, 0.08); }
    .header { padding: 28px 32px 20px; border-bottom: 1px solid rgba(0, 0, 0, 0.06); }
    .brand { font-weight: 700; letter-spacing: 0.5px; font-size: 20px; color: #2563eb;
      text-transform: uppercase; }
    .hero { padding: 32px; }
    h1 { margin: 0 0 16px; font-size: 24px; color: #0f172a; line-height: 1.3; }
    p { margin: 0 0 12px; color: #475569; line-height: 1.6; }
    .detail { background: #f1f5f9; border-radius: 8px; padding: 16px; margin-top: 16px;
      white-space: pre-line; color: #334155; }
    .footer { padding: 20px 32px; color: #64748b; font-size: 13px;
      border-top: 1px solid rgba(0, 0, 0, 0.06); }
  </style>
</head>
<body>
  <div class="wrapper">
    <div class="container">
      <div class="header">
        <div class="brand">{{.AppName}}</div>
      </div>
      <div class="hero">
        <h1>{{.Title}}</h1>
        <p>{{.Intro}}</p>
        {{if .Detail}}<div class="detail">{{.Detail}}</div>{{end}}
      </div>
      <div class="footer">
        © {{.Year}} {{.AppName}}. All rights reserved.
      </div>
    </div>
  </div>
</body>
</html>`

const plainTextTemplate = `{{.Title}}

{{.Intro}}

{{if .Detail}}{{.Detail}}
{{end}}
— {{.AppName}} (c) {{.Year}}
`

func (s *smtpMailService) renderEmail(data emailData) (html string, text string, err error) {
	var hb, tb bytes.Buffer
	if err = s.htmlTpl.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err = s.textTpl.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (s *smtpMailService) send(to, subject, htmlBody, textBody string) error {
	fromHeader := fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	date := time.Now().Format(time.RFC1123Z)
	boundary := fmt.Sprintf("mixed_%d", time.Now().UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = msg.WriteString(fmt.Sprintf(format, a...)) }

	write("From: %s\r\n", fromHeader)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", subject)
	write("Date: %s\r\n", date)
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	write("\r\n")

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 7bit\r\n\r\n")
	write("%s\r\n\r\n", textBody)

	write("--%s\r\n", boundary)
	write("Content-Type: text/html; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 7bit\r\n\r\n")
	write("%s\r\n\r\n", htmlBody)

	write("--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if s.cfg.UseSSL {
		// SMTPS (implicit TLS, usually port 465)
		tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		c, err := smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			return err
		}
		defer c.Quit()

		if err = c.Auth(auth); err != nil {
			return err
		}
		return s.transmit(c, to, msg.Bytes())
	}

	// STARTTLS path (typically port 587)
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
		if err = c.StartTLS(tlsCfg); err != nil {
			return err
		}
	} else if s.cfg.RequireTLS {
		return fmt.Errorf("smtp server %s does not support STARTTLS", s.cfg.Host)
	}

	if err = c.Auth(auth); err != nil {
		return err
	}
	return s.transmit(c, to, msg.Bytes())
}

func (s *smtpMailService) transmit(c *smtp.Client, to string, msg []byte) error {
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
