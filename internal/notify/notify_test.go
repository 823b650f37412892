package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drive-go/internal/config"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func recordingSend(sent *[]sentMail, err error) SendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return err
	}
}

func TestSMTPNotifier_Send(t *testing.T) {
	var sent []sentMail
	n := NewSMTPNotifier("smtp.example.com", 2525, "user", "pass", "drive@example.com")
	n.send = recordingSend(&sent, nil)

	link := "http://localhost:3000/panel?link=tok&permissions=READ"
	require.NoError(t, n.Send(context.Background(), "bob@example.com", link))
	require.Len(t, sent, 1)

	m := sent[0]
	assert.Equal(t, "smtp.example.com:2525", m.addr)
	assert.NotNil(t, m.auth)
	assert.Equal(t, "drive@example.com", m.from)
	assert.Equal(t, []string{"bob@example.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: File sharing link\r\n")
	assert.Contains(t, m.msg, "To: bob@example.com\r\n")
	assert.Contains(t, m.msg, "text/html")
	assert.Contains(t, m.msg, "A file has been shared with you.")
	// html/template escapes the ampersand in the query string
	assert.Contains(t, m.msg, `href="http://localhost:3000/panel?link=tok&amp;permissions=READ"`)
}

func TestSMTPNotifier_NoAuthWithoutUsername(t *testing.T) {
	var sent []sentMail
	n := NewSMTPNotifier("relay", 25, "", "", "drive@example.com")
	n.send = recordingSend(&sent, nil)

	require.NoError(t, n.Send(context.Background(), "a@example.com", "http://x"))
	require.Len(t, sent, 1)
	assert.Nil(t, sent[0].auth)
}

func TestSMTPNotifier_SendError(t *testing.T) {
	var sent []sentMail
	n := NewSMTPNotifier("relay", 25, "", "", "drive@example.com")
	n.send = recordingSend(&sent, errors.New("connection refused"))

	err := n.Send(context.Background(), "a@example.com", "http://x")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "a@example.com"))
}

func TestSMTPNotifier_CancelledContext(t *testing.T) {
	var sent []sentMail
	n := NewSMTPNotifier("relay", 25, "", "", "drive@example.com")
	n.send = recordingSend(&sent, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, n.Send(ctx, "a@example.com", "http://x"))
	assert.Empty(t, sent)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NoError(t, n.Send(context.Background(), "a@example.com", "http://x"))
}

func TestNewNotifierFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.MailConfig
		wantErr bool
	}{
		{"log", config.MailConfig{Type: "log"}, false},
		{"smtp", config.MailConfig{Type: "smtp", Host: "relay", Port: 25, From: "d@example.com"}, false},
		{"smtp without host", config.MailConfig{Type: "smtp", From: "d@example.com"}, true},
		{"unknown", config.MailConfig{Type: "pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNotifierFromConfig(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}
