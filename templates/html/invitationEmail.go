package templates

import "fmt"

// InvitationEmail is the rendered invitation in both formats sendgrid wants
type InvitationEmail struct {
	Subject string
	Plain   string
	HTML    string
}

// RenderInvitationEmail builds the e-mail sent to a freshly invited user
func RenderInvitationEmail(inviteeName, activityTitle, activityURL string) InvitationEmail {
	if inviteeName == "" {
		inviteeName = "there"
	}
	subject := fmt.Sprintf("You're invited: %s", activityTitle)
	body := fmt.Sprintf("Hi %s,\n\nYou have been invited to join \"%s\".\n\nOpen the activity to accept or decline:\n%s",
		inviteeName, activityTitle, activityURL)
	return InvitationEmail{
		Subject: subject,
		Plain:   body,
		HTML:    RenderGenericEmail(subject, body, activityURL),
	}
}
