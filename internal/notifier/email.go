package notifier

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	KindSettlementReceived = "settlement_received"
	KindDebtorReminder     = "debtor_reminder"
	KindVerifyEmail        = "verify_email"
	KindPasswordReset      = "password_reset"
)

// Email is one outbound message. It is also the AMQP message body.
type Email struct {
	Kind     string `json:"kind"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

func (e Email) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EmailFromJSON(data []byte) (Email, error) {
	var e Email
	if err := json.Unmarshal(data, &e); err != nil {
		return Email{}, fmt.Errorf("unmarshal email: %w", err)
	}
	if e.To == "" {
		return Email{}, fmt.Errorf("email has no recipient")
	}
	return e, nil
}

// Sender delivers a single email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

type SenderFunc func(ctx context.Context, e Email) error

func (f SenderFunc) Send(ctx context.Context, e Email) error {
	return f(ctx, e)
}
