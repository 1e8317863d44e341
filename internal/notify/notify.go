// Package notify delivers outbound notifications. Delivery is best-effort:
// callers decide whether a failed send aborts their workflow (account
// creation deliberately ignores it).
package notify

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"

	"gorm.io/gorm"

	"github.com/diewo77/pointex/internal/models"
)

// Notifier sends account-related notifications.
type Notifier interface {
	// SendAccountConfirmation sends the account confirmation message for the
	// given identity account id.
	SendAccountConfirmation(userID string) error
}

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Configured reports whether a mail server is set.
func (c SMTPConfig) Configured() bool { return c.Host != "" && c.From != "" }

// EmailNotifier sends confirmation emails over SMTP and records every
// attempt as a Notification row, so swallowed failures stay observable.
type EmailNotifier struct {
	db  *gorm.DB
	cfg SMTPConfig
}

func NewEmailNotifier(db *gorm.DB, cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{db: db, cfg: cfg}
}

const confirmationSubject = "Welcome to PointEx - confirm your account"

func (n *EmailNotifier) SendAccountConfirmation(userID string) error {
	var user models.User
	if err := n.db.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("notify: load account %s: %w", userID, err)
	}

	sendErr := n.send(user.Email, confirmationSubject, fmt.Sprintf(
		"Hello %s,\r\n\r\nYour PointEx account has been created. You can now sign in with %s.\r\n",
		user.Name, user.Email))

	record := models.Notification{
		UserID:  userID,
		Type:    "account_confirmation",
		Subject: confirmationSubject,
		Sent:    sendErr == nil,
	}
	if sendErr != nil {
		record.Error = sendErr.Error()
	}
	if err := n.db.Create(&record).Error; err != nil {
		log.Printf("notify: could not record notification for %s: %v", userID, err)
	}
	return sendErr
}

func (n *EmailNotifier) send(to, subject, body string) error {
	if !n.cfg.Configured() {
		return errors.New("notify: smtp not configured")
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.From, to, subject, body))
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}
	return smtp.SendMail(addr, auth, n.cfg.From, []string{to}, msg)
}

// LogNotifier is the development fallback used when no mail server is
// configured: it only logs the send.
type LogNotifier struct{}

func (LogNotifier) SendAccountConfirmation(userID string) error {
	log.Printf("notify: account confirmation for %s (log only)", userID)
	return nil
}
