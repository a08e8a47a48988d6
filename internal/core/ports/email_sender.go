package ports

import "context"

// EmailSender delivers an HTML message. Implementations that are switched
// off by configuration return domain.ErrEmailDisabled.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
