package notify

import (
	"context"
	"errors"
	"testing"

	tb "gopkg.in/tucnak/telebot.v2"
)

type fakeSender struct {
	to   tb.Recipient
	text string
	err  error
}

func (f *fakeSender) Send(to tb.Recipient, what interface{}, _ ...interface{}) (*tb.Message, error) {
	f.to = to
	f.text, _ = what.(string)
	return &tb.Message{}, f.err
}

func TestTelegramNotifySendsToChat(t *testing.T) {
	fs := &fakeSender{}
	n := NewTelegramWithSender(fs, 4242, nil)
	if err := n.Notify(context.Background(), "breaker tripped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.to.Recipient() != "4242" || fs.text != "breaker tripped" {
		t.Fatalf("unexpected send %v %q", fs.to.Recipient(), fs.text)
	}
}

func TestTelegramNotifyErrors(t *testing.T) {
	fs := &fakeSender{err: errors.New("forbidden")}
	n := NewTelegramWithSender(fs, 1, nil)
	if err := n.Notify(context.Background(), "x"); err == nil {
		t.Fatalf("expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs.err = nil
	fs.text = ""
	if err := n.Notify(ctx, "y"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if fs.text != "" {
		t.Fatalf("cancelled notify must not send")
	}
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	if _, err := NewTelegram("", 1, 0, nil); err == nil {
		t.Fatalf("expected error without token")
	}
}
