package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		contains []string
	}{
		{
			name:     "text only",
			msg:      Message{To: []string{"a@example.com"}, Subject: "Reset", TextBody: "code 123456"},
			contains: []string{"From: no-reply@example.com\r\n", "To: a@example.com\r\n", "Content-Type: text/plain; charset=UTF-8", "\r\n\r\ncode 123456"},
		},
		{
			name:     "html only",
			msg:      Message{To: []string{"a@example.com"}, HTMLBody: "<b>123456</b>"},
			contains: []string{"Content-Type: text/html; charset=UTF-8", "<b>123456</b>"},
		},
		{
			name:     "alternative",
			msg:      Message{To: []string{"a@example.com"}, Cc: []string{"b@example.com"}, TextBody: "plain", HTMLBody: "<p>rich</p>"},
			contains: []string{"Cc: b@example.com\r\n", "multipart/alternative; boundary=", "plain", "<p>rich</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := compose("no-reply@example.com", tt.msg)
			if err != nil {
				t.Fatalf("compose() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(raw), want) {
					t.Fatalf("missing %q in:\n%s", want, raw)
				}
			}
		})
	}
}

func TestSMTP_SendValidation(t *testing.T) {
	if _, err := NewSMTP(SMTPConfig{Host: "localhost"}); !errors.Is(err, ErrSMTPHostPortRequired) {
		t.Fatalf("NewSMTP() = %v", err)
	}

	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 1025})
	if err != nil {
		t.Fatalf("NewSMTP() = %v", err)
	}

	if err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("no recipients: %v", err)
	}
	if err := s.Send(context.Background(), Message{To: []string{"a@example.com"}}); !errors.Is(err, ErrNoSender) {
		t.Fatalf("no sender: %v", err)
	}
}
