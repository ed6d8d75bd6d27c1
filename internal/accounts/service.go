// Package accounts handles registration, activation and login.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/justestif/synchrify/internal/db"
	"github.com/justestif/synchrify/internal/mail"
)

// emailPattern matches well-formed email addresses.
var emailPattern = regexp.MustCompile(`^[\w\-.]+@(?:[\w-]+\.)+[\w-]{2,4}$`)

// Sentinel errors, surfaced verbatim to the end user.
var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrEmailTaken       = errors.New("user already exists")
	ErrUnknownUser      = errors.New("user does not exist")
	ErrNotActivated     = errors.New("account is not activated, check your email")
	ErrWrongPassword    = errors.New("wrong password")
	ErrInvalidToken     = errors.New("invalid activation token")
	ErrAlreadyActivated = errors.New("account is already activated")
)

// UserStore persists user records.
type UserStore interface {
	Create(ctx context.Context, user *db.User) error
	Get(ctx context.Context, id int64) (*db.User, error)
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Activate(ctx context.Context, id int64) error
}

// ActivationStore persists one-time activation tokens.
type ActivationStore interface {
	Create(ctx context.Context, activation *db.Activation) error
	Get(ctx context.Context, token string) (*db.Activation, error)
	Invalidate(ctx context.Context, token string) error
}

// Service handles account lifecycle operations.
type Service struct {
	users       UserStore
	activations ActivationStore
	mailer      mail.Mailer

	// BaseURL is the externally visible server root used to build
	// activation links.
	baseURL string
}

// NewService creates an account service.
func NewService(users UserStore, activations ActivationStore, mailer mail.Mailer, baseURL string) *Service {
	return &Service{
		users:       users,
		activations: activations,
		mailer:      mailer,
		baseURL:     baseURL,
	}
}

// Register creates a deactivated user with a bcrypt password hash,
// issues a one-time activation token and mails the activation link.
// The user row survives a mail delivery failure; the error is surfaced
// so the caller knows the link never went out.
func (s *Service) Register(ctx context.Context, email, password string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &db.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	token := uuid.NewString()
	if err := s.activations.Create(ctx, &db.Activation{Token: token, UserID: user.ID}); err != nil {
		return fmt.Errorf("creating activation: %w", err)
	}

	activationURL := s.baseURL + "/activate/" + token
	if err := s.mailer.SendActivation(ctx, email, activationURL); err != nil {
		return fmt.Errorf("mailing activation link: %w", err)
	}
	return nil
}

// Activate redeems a one-time activation token. A token that was
// already redeemed cannot activate again. Returns the activated
// account's email.
func (s *Service) Activate(ctx context.Context, token string) (string, error) {
	activation, err := s.activations.Get(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("looking up activation: %w", err)
	}

	if !activation.Valid {
		return "", ErrAlreadyActivated
	}

	if err := s.users.Activate(ctx, activation.UserID); err != nil {
		return "", fmt.Errorf("activating user: %w", err)
	}
	if err := s.activations.Invalidate(ctx, token); err != nil {
		return "", fmt.Errorf("invalidating token: %w", err)
	}

	user, err := s.users.Get(ctx, activation.UserID)
	if err != nil {
		return "", fmt.Errorf("loading activated user: %w", err)
	}
	return user.Email, nil
}

// Login verifies credentials against an activated account and returns
// the user.
func (s *Service) Login(ctx context.Context, email, password string) (*db.User, error) {
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !user.Activated {
		return nil, ErrNotActivated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return user, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (*db.User, error) {
	return s.users.Get(ctx, id)
}
