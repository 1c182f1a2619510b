// Package mail delivers verification codes to users. Delivery is a
// fire-and-forget side effect: callers log failures and never roll back
// state because an email did not go out.
package mail

import "context"

// Notifier sends a verification code to an email address.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email string, code string) error
}
