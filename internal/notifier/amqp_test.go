package notifier

import (
	"context"
	"errors"
	"testing"
)

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *fakeAck) Ack(bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(_, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func TestProcessMessage(t *testing.T) {
	ok := SenderFunc(func(context.Context, Email) error { return nil })
	failing := SenderFunc(func(context.Context, Email) error { return errors.New("down") })
	valid := []byte(`{"kind":"debtor_reminder","to":"c@example.com","subject":"s","html_body":"b"}`)

	tests := []struct {
		name         string
		body         []byte
		redelivered  bool
		sender       Sender
		wantAck      bool
		wantRequeued bool
	}{
		{"delivered", valid, false, ok, true, false},
		{"malformed dropped", []byte(`{`), false, ok, false, false},
		{"missing recipient dropped", []byte(`{"subject":"s"}`), false, ok, false, false},
		{"failure requeued once", valid, false, failing, false, true},
		{"failure after redelivery dropped", valid, true, failing, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			processMessage(context.Background(), tt.body, tt.redelivered, ack, tt.sender)

			if ack.acked != tt.wantAck {
				t.Fatalf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Fatal("expected a nack")
			}
			if ack.requeued != tt.wantRequeued {
				t.Fatalf("requeued = %v, want %v", ack.requeued, tt.wantRequeued)
			}
		})
	}
}
