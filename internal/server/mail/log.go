package mail

import (
	"context"

	"github.com/dmitrijs2005/chatline/internal/logging"
)

// LogNotifier writes codes to the log instead of sending mail. Used when no
// SMTP credentials are configured, which keeps local development usable.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "mail")}
}

func (n *LogNotifier) SendVerificationCode(ctx context.Context, email string, code string) error {
	n.logger.Info(ctx, "verification code issued", "email", email, "code", code)
	return nil
}
