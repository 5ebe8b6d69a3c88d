// File: /services/email_service.go
package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"trianglecal-api/config"
)

type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendApplicationDecision notifies an applicant that their author
// application was approved or declined.
func (es *EmailService) SendApplicationDecision(toEmail, toName string, approved bool) error {
	subject := "Your author application was declined"
	body := fmt.Sprintf("Hi %s,\n\nThanks for applying to publish events on %s. "+
		"We can't approve your application at this time. You're welcome to apply again later.\n\n%s",
		toName, es.config.FromName, es.config.FromName)

	if approved {
		subject = "You can now publish events"
		body = fmt.Sprintf("Hi %s,\n\nYour author application was approved. "+
			"Sign in to start submitting events to the calendar.\n\n%s",
			toName, es.config.FromName)
	}

	return es.send(toEmail, subject, body)
}

func (es *EmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", es.config.FromEmail, es.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
