package mailer

import (
	"log"
)

// DevMailer is a development-mode Mailer that logs instead of sending
type DevMailer struct{}

// NewDevMailer creates a new development mailer
func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

// Send logs the message and reports success
func (m *DevMailer) Send(templateID string, data map[string]interface{}, to string) (bool, error) {
	log.Printf("[DEV MAIL] template=%s to=%s data=%v", templateID, to, data)
	return true, nil
}

// GetName returns the mailer name
func (m *DevMailer) GetName() string {
	return "dev-mailer"
}
