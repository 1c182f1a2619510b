// Package auth owns the account state machine: registration, email
// verification, login, and account deletion. A user moves
// Unregistered → PendingVerification → Verified; only verified users may
// log in through the ordinary path.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/chatline/internal/common"
	"github.com/dmitrijs2005/chatline/internal/logging"
	"github.com/dmitrijs2005/chatline/internal/server/mail"
	"github.com/dmitrijs2005/chatline/internal/server/models"
	"github.com/dmitrijs2005/chatline/internal/server/repositories/users"
)

const codeValidity = 15 * time.Minute

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

type Service struct {
	repo     users.Repository
	notifier mail.Notifier
	verifier CredentialVerifier
	logger   logging.Logger

	// now is a seam so expiry checks are testable.
	now func() time.Time
}

func NewService(repo users.Repository, notifier mail.Notifier, verifier CredentialVerifier, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		verifier: verifier,
		logger:   logger.With("module", "auth"),
		now:      time.Now,
	}
}

// RegisterParams carries the registration input. Phone and Name are
// optional; empty strings mean absent.
type RegisterParams struct {
	Email    string
	Password string
	Phone    string
	Name     string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) validateRegistration(p *RegisterParams) error {
	p.Email = normalizeEmail(p.Email)
	if !emailPattern.MatchString(p.Email) {
		return fmt.Errorf("%w: malformed email", common.ErrorValidation)
	}
	if len(p.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", common.ErrorValidation)
	}
	p.Phone = strings.TrimSpace(p.Phone)
	if p.Phone != "" && !phonePattern.MatchString(p.Phone) {
		return fmt.Errorf("%w: malformed phone number", common.ErrorValidation)
	}
	p.Name = strings.TrimSpace(p.Name)
	return nil
}

// Register creates a PendingVerification user and asks the notifier to
// deliver the code. Email/phone uniqueness is enforced by the storage layer,
// so concurrent registrations with the same email cannot both succeed.
// Registration never logs the user in.
func (s *Service) Register(ctx context.Context, p RegisterParams) (string, error) {

	if err := s.validateRegistration(&p); err != nil {
		return "", err
	}

	hash, err := s.verifier.Hash(p.Password)
	if err != nil {
		return "", common.ErrorInternal
	}

	code, err := common.MakeVerificationCode()
	if err != nil {
		return "", common.ErrorInternal
	}
	expiry := s.now().Add(codeValidity)

	user := &models.User{
		ID:                 uuid.NewString(),
		Email:              p.Email,
		PasswordHash:       hash,
		VerificationCode:   &code,
		VerificationExpiry: &expiry,
	}
	if p.Phone != "" {
		user.Phone = &p.Phone
	}
	if p.Name != "" {
		user.Name = &p.Name
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", err
		}
		return "", fmt.Errorf("error creating user: %w", err)
	}

	s.deliverCode(ctx, user.Email, code)

	return user.ID, nil
}

// deliverCode hands the code to the notifier in the background. Failures are
// logged only; the user retries through resend-code.
func (s *Service) deliverCode(ctx context.Context, email, code string) {
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.SendVerificationCode(bgCtx, email, code); err != nil {
			s.logger.Error(bgCtx, "failed to send verification code", "email", email, "error", err.Error())
		}
	}()
}

// VerifyEmail consumes an outstanding code. Expiry is a pure comparison of
// stored state against the current time; expired codes are never swept, only
// rejected here. On success the caller treats it as an implicit login.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*models.PublicUser, error) {

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if user.EmailVerified {
		return nil, common.ErrAlreadyVerified
	}

	if user.VerificationCode == nil || *user.VerificationCode != code {
		return nil, common.ErrInvalidCode
	}
	if user.VerificationExpiry == nil || s.now().After(*user.VerificationExpiry) {
		return nil, common.ErrInvalidCode
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return nil, common.ErrorInternal
	}

	pub := user.Public()
	return &pub, nil
}

// ResendCode issues a fresh code and expiry, superseding any outstanding
// code. Existing sessions are untouched.
func (s *Service) ResendCode(ctx context.Context, email string) error {

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}

	code, err := common.MakeVerificationCode()
	if err != nil {
		return common.ErrorInternal
	}

	if err := s.repo.UpdateVerification(ctx, user.ID, code, s.now().Add(codeValidity)); err != nil {
		return common.ErrorInternal
	}

	s.deliverCode(ctx, user.Email, code)

	return nil
}

// Login checks credentials. Unknown email and wrong password both yield
// ErrInvalidCredentials so callers cannot probe which emails exist. A
// correct password on an unverified account yields ErrVerificationRequired
// and no session is created.
func (s *Service) Login(ctx context.Context, email, password string) (*models.PublicUser, error) {

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !s.verifier.Compare(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, common.ErrVerificationRequired
	}

	pub := user.Public()
	return &pub, nil
}

// GetUser re-fetches a user by id. Authorization calls this on every request
// so a deleted user cannot keep operating on a stale session.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// DeleteAccount removes the user row; the user's messages cascade at the
// schema level. The caller is responsible for destroying the session.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}
