package mailer

// Template IDs understood by the mail provider
const (
	TemplateBusinessApproved = "business-approved"
	TemplateBusinessRejected = "business-rejected"
	TemplatePasswordResetOTP = "password-reset-otp"
)

// Mailer defines the interface for sending transactional email.
// Send returns whether the provider accepted the message; callers on the
// state-machine paths treat failures as log-and-continue, never as request
// failures.
type Mailer interface {
	// Send renders the given template with data and sends it to the address
	Send(templateID string, data map[string]interface{}, to string) (bool, error)

	// GetName returns the name of the mailer implementation
	GetName() string
}
