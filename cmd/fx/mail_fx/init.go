package mail_fx

import (
	"log"
	"os"

	"go.uber.org/fx"

	"tripgo/internal/services"
)

var Module = fx.Provide(provideMailService)

func provideMailService() services.IMailService {
	cfg := services.SMTPConfig{
		Host:       os.Getenv("SMTP_HOST"),
		Port:       587, // 587 for STARTTLS; use 465 with UseSSL=true for SMTPS
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		From:       os.Getenv("SMTP_FROM"),
		FromName:   "Tripgo",
		UseSSL:     false,
		RequireTLS: true,

		AppName: "Tripgo",
	}

	mailService, err := services.NewSMTPMailService(cfg)
	if err != nil {
		log.Printf("Failed to initialize SMTP mail service: %v", err)
	}
	return mailService
}
