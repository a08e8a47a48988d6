package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

var resetEmailTemplate = template.Must(template.New("reset_password").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Username}},</p>
<p>We received a request to recover the password of your {{.Project}} account.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>The link is valid for {{.ValidHours}} hours. If you did not ask for it, ignore this e-mail.</p>
</body>
</html>
`))

type resetEmailData struct {
	Project    string
	Username   string
	Link       string
	ValidHours int
}

// ResetOptions configures the password reset flow.
type ResetOptions struct {
	Project      string
	FrontendHost string
	TokenTTL     time.Duration
}

// ResetService issues and consumes password reset tokens. The tokens carry
// no server-side state, so a token can be replayed until it expires.
type ResetService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenCodec
	mailer ports.EmailSender
	opts   ResetOptions
	log    zerolog.Logger
}

// NewResetService creates a ResetService; a zero TokenTTL means 48 hours.
func NewResetService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	mailer ports.EmailSender,
	opts ResetOptions,
	log zerolog.Logger,
) *ResetService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 48 * time.Hour
	}
	return &ResetService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,
		opts:   opts,
		log:    log,
	}
}

// RequestReset mails a reset link to the owner of email.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.Find(ctx, domain.UserByEmail, email)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	token, err := s.tokens.Issue(ports.TokenClaims{
		Subject: user.Email,
		Purpose: ports.TokenPurposeReset,
	}, s.opts.TokenTTL)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	subject, body, err := s.renderEmail(user, token)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset requested")
	return nil
}

// ConfirmReset sets newPassword for the user bound to token. Unlike
// ChangePassword it does not compare against the current password.
func (s *ResetService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.Decode(token)
	if err != nil || claims.Purpose != ports.TokenPurposeReset || claims.Subject == "" {
		return domain.ErrInvalidToken
	}

	user, err := s.users.Find(ctx, domain.UserByEmail, claims.Subject)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if !user.IsActive {
		return domain.ErrInactiveUser
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return nil
}

func (s *ResetService) renderEmail(user *domain.User, token string) (string, string, error) {
	link := s.opts.FrontendHost + "/reset-password?token=" + url.QueryEscape(token)

	var buf bytes.Buffer
	err := resetEmailTemplate.Execute(&buf, resetEmailData{
		Project:    s.opts.Project,
		Username:   user.Username,
		Link:       link,
		ValidHours: int(s.opts.TokenTTL / time.Hour),
	})
	if err != nil {
		return "", "", err
	}

	subject := fmt.Sprintf("%s - Password recovery for user %s", s.opts.Project, user.Username)
	return subject, buf.String(), nil
}
