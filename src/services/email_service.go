// backend/src/services/email_service.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/propfolio/backend/src/config"
	"github.com/username/propfolio/backend/src/logger"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{PasswordResetBaseURL: config.Cfg.PasswordResetBaseURL}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:                   mg,
			senderEmail:          config.Cfg.SenderEmail,
			senderName:           config.Cfg.SenderName,
			passwordResetBaseURL: config.Cfg.PasswordResetBaseURL,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{PasswordResetBaseURL: config.Cfg.PasswordResetBaseURL}
		}
		return &SMTPEmailService{
			SMTPServer:           config.Cfg.SMTPServer,
			SMTPPort:             config.Cfg.SMTPPort,
			SMTPUser:             config.Cfg.SMTPUser,
			SMTPPassword:         config.Cfg.SMTPPassword,
			SenderEmail:          config.Cfg.SenderEmail,
			PasswordResetBaseURL: config.Cfg.PasswordResetBaseURL,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{PasswordResetBaseURL: config.Cfg.PasswordResetBaseURL}
	}
}

// --- Mailgun ---

type MailgunEmailService struct {
	mg                   *mailgun.MailgunImpl
	senderEmail          string
	senderName           string
	passwordResetBaseURL string
}

func (s *MailgunEmailService) send(toEmail, subject, body string) error {
	sender := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(sender, subject, body, toEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Mailgun send failed", "to", toEmail, "subject", subject, "error", err)
		return fmt.Errorf("sending email via mailgun: %w", err)
	}
	logger.L.Info("Email sent via Mailgun", "to", toEmail, "subject", subject, "messageID", id)
	return nil
}

func (s *MailgunEmailService) SendWelcomeEmail(toEmail, username string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to Propfolio. Add your first property and start logging transactions to build your tax pack.\n\nThe Propfolio Team", username)
	return s.send(toEmail, "Welcome to Propfolio", body)
}

func (s *MailgunEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	link := fmt.Sprintf("%s?token=%s", s.passwordResetBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your account. Use the link below to set a new password:\n\n%s\n\nIf you did not request this, you can ignore this email.", username, link)
	return s.send(toEmail, "Reset your Propfolio password", body)
}

// --- SMTP ---

type SMTPEmailService struct {
	SMTPServer           string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SenderEmail          string
	PasswordResetBaseURL string
}

func (s *SMTPEmailService) send(toEmail, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n", toEmail, subject, body))
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{toEmail}, msg); err != nil {
		logger.L.Error("SMTP send failed", "to", toEmail, "subject", subject, "error", err)
		return fmt.Errorf("sending email via smtp: %w", err)
	}
	logger.L.Info("Email sent via SMTP", "to", toEmail, "subject", subject)
	return nil
}

func (s *SMTPEmailService) SendWelcomeEmail(toEmail, username string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to Propfolio. Add your first property and start logging transactions to build your tax pack.\n\nThe Propfolio Team", username)
	return s.send(toEmail, "Welcome to Propfolio", body)
}

func (s *SMTPEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	link := fmt.Sprintf("%s?token=%s", s.PasswordResetBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your account. Use the link below to set a new password:\n\n%s\n\nIf you did not request this, you can ignore this email.", username, link)
	return s.send(toEmail, "Reset your Propfolio password", body)
}

// --- Mock (local development) ---

type MockEmailService struct {
	PasswordResetBaseURL string
}

func (s *MockEmailService) SendWelcomeEmail(toEmail, username string) error {
	logger.L.Info("MOCK EMAIL: welcome", "to", toEmail, "username", username)
	return nil
}

func (s *MockEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	logger.L.Info("MOCK EMAIL: password reset", "to", toEmail, "username", username,
		"link", fmt.Sprintf("%s?token=%s", s.PasswordResetBaseURL, token))
	return nil
}
