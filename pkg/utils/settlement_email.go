package utils

import (
	"fmt"
	"html"
	"time"
)

// SettlementReceivedEmail renders the email sent to the recipient of a
// settlement.
func SettlementReceivedEmail(payerEmail, amount, groupName, date string, now time.Time) (string, string) {
	subject := fmt.Sprintf("You've been paid %s in '%s'", amount, groupName)

	content := fmt.Sprintf(`
				<p class="message">
					Hi there,<br><br>
					<b>%s</b> has recorded a payment of <b>%s</b> to you in the group <b>%s</b>.
				</p>
				<div class="amount-box">
					<h3>%s Received</h3>
					<p>Date: %s</p>
				</div>
				<p class="message">Your balances in the group have been updated.</p>`,
		html.EscapeString(payerEmail), amount, html.EscapeString(groupName), amount, date)

	return subject, renderEmail("Payment Received", "#0a4d3c", "You've Been Paid", content, now.Year())
}
