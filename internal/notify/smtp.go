package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"

	"drive-go/internal/drive"
)

const subject = "File sharing link"

var bodyTemplate = template.Must(template.New("share").Parse(
	`<p>A file has been shared with you.</p><br><p>Access it using the following link:</p><a href="{{.}}">{{.}}</a>`,
))

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails share links through an SMTP relay.
type SMTPNotifier struct {
	addr string
	auth smtp.Auth
	from string
	send SendFunc
}

// NewSMTPNotifier creates a notifier for host:port. Authentication is used
// only when username is set.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	n := &SMTPNotifier{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		send: smtp.SendMail,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

// Send mails link to email.
func (n *SMTPNotifier) Send(ctx context.Context, email, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := n.message(email, link)
	if err != nil {
		return err
	}
	if err := n.send(n.addr, n.auth, n.from, []string{email}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", email, err)
	}
	return nil
}

func (n *SMTPNotifier) message(to, link string) ([]byte, error) {
	var body bytes.Buffer
	if err := bodyTemplate.Execute(&body, link); err != nil {
		return nil, fmt.Errorf("rendering mail body: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	msg.WriteString("\r\n")
	return msg.Bytes(), nil
}

// Compile-time check that SMTPNotifier implements drive.Notifier interface
var _ drive.Notifier = (*SMTPNotifier)(nil)
