package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPNotifier sends verification codes through an SMTP relay.
type SMTPNotifier struct {
	client *gomail.Client
	from   string
}

// NewSMTPNotifier builds a notifier for the given relay. Credentials are
// passed straight to SMTP plain auth.
func NewSMTPNotifier(host string, port int, username, password, from string) (*SMTPNotifier, error) {
	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(username),
		gomail.WithPassword(password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPNotifier{client: client, from: from}, nil
}

func (n *SMTPNotifier) SendVerificationCode(ctx context.Context, email string, code string) error {
	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject("Your chatline verification code")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Welcome to chatline!\n\nYour verification code: %s\n\nThe code is valid for 15 minutes. If you did not request it, ignore this message.\n", code))

	return n.client.DialAndSendWithContext(ctx, msg)
}
