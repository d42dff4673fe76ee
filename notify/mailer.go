package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/models"
	templates "github.com/linesmerrill/activities-api/templates/html"
)

// Mailer sends invitation e-mails through sendgrid
type Mailer struct {
	from    *mail.Email
	baseURL string
	send    func(*mail.SGMailV3) error
}

// NewMailer returns a mailer using the sendgrid api key. An empty key returns
// nil, callers treat a nil mailer as e-mail being disabled.
func NewMailer(apiKey, fromAddress, baseURL string) *Mailer {
	if apiKey == "" {
		return nil
	}
	client := sendgrid.NewSendClient(apiKey)
	return &Mailer{
		from:    mail.NewEmail("Activities", fromAddress),
		baseURL: baseURL,
		send: func(message *mail.SGMailV3) error {
			response, err := client.Send(message)
			if err != nil {
				return err
			}
			if response.StatusCode >= 400 {
				return fmt.Errorf("sendgrid error: status %d: %s", response.StatusCode, response.Body)
			}
			return nil
		},
	}
}

// SendInvitation e-mails user about the invitation to activityTitle
func (m *Mailer) SendInvitation(user models.User, activityID, activityTitle string) error {
	if user.Details.Email == "" {
		return nil
	}
	name := user.Details.Name
	if name == "" {
		name = user.Details.Username
	}
	email := templates.RenderInvitationEmail(name, activityTitle, fmt.Sprintf("%s/activity/%s", m.baseURL, activityID))
	to := mail.NewEmail(name, user.Details.Email)
	if err := m.send(mail.NewSingleEmail(m.from, email.Subject, to, email.Plain, email.HTML)); err != nil {
		return err
	}
	zap.S().Infow("invitation email sent", "userId", user.ID, "activityId", activityID)
	return nil
}
