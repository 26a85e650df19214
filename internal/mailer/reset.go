package mailer

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

var resetHTML = template.Must(template.New("reset").Parse(
	`<p>Hello {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>`))

// PasswordReset renders the reset email sent to a user.  The link points at
// the SPA, which posts the token back to /api/users/reset-password.
func PasswordReset(to, name, baseURL, token string) (Message, error) {
	link := strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)

	var html strings.Builder
	if err := resetHTML.Execute(&html, struct{ Name, Link string }{name, link}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		Text: fmt.Sprintf("Hello %s,\n\nWe received a request to reset your password. "+
			"Open the link below to choose a new one:\n\n%s\n\nIf you did not request this, you can ignore this email.\n", name, link),
		HTML: html.String(),
	}, nil
}
