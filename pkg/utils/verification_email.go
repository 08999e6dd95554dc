package utils

import (
	"fmt"
	"html"
	"time"
)

func VerificationEmail(username, verifyURL string) (string, string) {
	subject := fmt.Sprintf("Welcome to Bill Buddy, %s! Please verify your email", username)

	content := fmt.Sprintf(`
				<p class="message">Hi %s,<br><br>Thanks for signing up. Confirm your email address to start splitting bills with your groups.</p>
				<div style="text-align: center;"><a href="%s" class="action-btn">Verify Email</a></div>
				<p class="message">If you didn't create an account, you can safely ignore this email.</p>`,
		html.EscapeString(username), verifyURL)

	return subject, renderEmail("Verify Email", "#0a4d3c", "Welcome aboard", content, time.Now().Year())
}
