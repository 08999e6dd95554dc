package utils

import (
	"fmt"
	"html"
	"time"
)

func DebtorReminderEmail(name, amount, groupName, creditorEmail string, now time.Time) (string, string) {
	subject := fmt.Sprintf("Reminder: you still owe %s in '%s'", amount, groupName)

	content := fmt.Sprintf(`
				<p class="message">
					Hi %s,<br><br>
					This is a friendly reminder that you still owe <b>%s</b> to <b>%s</b>
					in your group <b>%s</b>.
				</p>
				<div class="amount-box">
					<h3>%s Due</h3>
					<p>Group: %s</p>
					<p>As of: %s</p>
				</div>
				<p class="message">Record a settlement once you've paid to keep the group balanced.</p>`,
		html.EscapeString(name), amount, html.EscapeString(creditorEmail), html.EscapeString(groupName),
		amount, html.EscapeString(groupName), now.Format("Jan 2, 2006"))

	return subject, renderEmail("Payment Reminder", "#d9534f", "Payment Reminder", content, now.Year())
}
