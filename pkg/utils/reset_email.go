package utils

import (
	"fmt"
	"html"
	"time"
)

// PasswordResetEmail renders the reset email with a link valid until
// expiresAt.
func PasswordResetEmail(username, resetURL string, expiresAt time.Time) (string, string) {
	subject := "Reset your Bill Buddy password"

	content := fmt.Sprintf(`
				<p class="message">Hello %s,</p>
				<p class="message">We received a request to reset your password. You can reset it by clicking the button below:</p>
				<div style="text-align: center;"><a href="%s" class="action-btn">Reset Password</a></div>
				<p class="message">This link will expire at <b>%s</b>. If you did not request a password reset, please ignore this email.</p>`,
		html.EscapeString(username), resetURL, expiresAt.Format("3:04 PM, Jan 2 2006"))

	return subject, renderEmail("Password Reset", "#0a4d3c", "Reset Your Password", content, time.Now().Year())
}
