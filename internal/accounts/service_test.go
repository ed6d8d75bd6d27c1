package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/justestif/synchrify/internal/db"
	"github.com/justestif/synchrify/internal/mail"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	nextID  int64
	byID    map[int64]db.User
	byEmail map[string]int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		nextID:  1,
		byID:    make(map[int64]db.User),
		byEmail: make(map[string]int64),
	}
}

func (s *fakeUserStore) Create(_ context.Context, user *db.User) error {
	user.ID = s.nextID
	s.nextID++
	s.byID[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *fakeUserStore) Get(_ context.Context, id int64) (*db.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &user, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*db.User, error) {
	id, ok := s.byEmail[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	user := s.byID[id]
	return &user, nil
}

func (s *fakeUserStore) EmailExists(_ context.Context, email string) (bool, error) {
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *fakeUserStore) Activate(_ context.Context, id int64) error {
	user, ok := s.byID[id]
	if !ok {
		return db.ErrNotFound
	}
	user.Activated = true
	s.byID[id] = user
	return nil
}

// fakeActivationStore is an in-memory ActivationStore.
type fakeActivationStore struct {
	byToken map[string]db.Activation
}

func newFakeActivationStore() *fakeActivationStore {
	return &fakeActivationStore{byToken: make(map[string]db.Activation)}
}

func (s *fakeActivationStore) Create(_ context.Context, activation *db.Activation) error {
	activation.Valid = true
	s.byToken[activation.Token] = *activation
	return nil
}

func (s *fakeActivationStore) Get(_ context.Context, token string) (*db.Activation, error) {
	activation, ok := s.byToken[token]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &activation, nil
}

func (s *fakeActivationStore) Invalidate(_ context.Context, token string) error {
	activation, ok := s.byToken[token]
	if !ok {
		return db.ErrNotFound
	}
	activation.Valid = false
	s.byToken[token] = activation
	return nil
}

// captureMailer records sent activation links.
type captureMailer struct {
	emails []string
	urls   []string
}

func (m *captureMailer) SendActivation(_ context.Context, email, activationURL string) error {
	m.emails = append(m.emails, email)
	m.urls = append(m.urls, activationURL)
	return nil
}

var _ mail.Mailer = (*captureMailer)(nil)

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeActivationStore, *captureMailer) {
	t.Helper()
	users := newFakeUserStore()
	activations := newFakeActivationStore()
	mailer := &captureMailer{}
	svc := NewService(users, activations, mailer, "http://127.0.0.1:8080")
	return svc, users, activations, mailer
}

// register runs Register and returns the activation token from the
// mailed link.
func register(t *testing.T, svc *Service, mailer *captureMailer, email, password string) string {
	t.Helper()
	if err := svc.Register(context.Background(), email, password); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	link := mailer.urls[len(mailer.urls)-1]
	return link[strings.LastIndex(link, "/")+1:]
}

func TestRegister_InvalidEmail(t *testing.T) {
	tests := []string{"", "not-an-email", "missing@tld", "a b@example.com"}

	for _, email := range tests {
		t.Run(email, func(t *testing.T) {
			svc, _, _, _ := newTestService(t)

			err := svc.Register(context.Background(), email, "secret")
			if !errors.Is(err, ErrInvalidEmail) {
				t.Errorf("Register(%q) error = %v, want ErrInvalidEmail", email, err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, mailer := newTestService(t)
	register(t, svc, mailer, "user@example.com", "secret")

	err := svc.Register(context.Background(), "user@example.com", "other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	svc, users, _, mailer := newTestService(t)
	register(t, svc, mailer, "user@example.com", "secret")

	user, err := users.GetByEmail(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if user.PasswordHash == "secret" {
		t.Error("password stored in plaintext")
	}
	if !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", user.PasswordHash)
	}
}

func TestActivateAndLogin(t *testing.T) {
	svc, _, _, mailer := newTestService(t)
	token := register(t, svc, mailer, "user@example.com", "secret")
	ctx := context.Background()

	// Login before activation is rejected.
	if _, err := svc.Login(ctx, "user@example.com", "secret"); !errors.Is(err, ErrNotActivated) {
		t.Errorf("Login() before activation error = %v, want ErrNotActivated", err)
	}

	email, err := svc.Activate(ctx, token)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if email != "user@example.com" {
		t.Errorf("Activate() = %q, want user@example.com", email)
	}

	user, err := svc.Login(ctx, "user@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Email != "user@example.com" {
		t.Errorf("Login() user = %+v", user)
	}

	if _, err := svc.Login(ctx, "user@example.com", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Login() with wrong password error = %v, want ErrWrongPassword", err)
	}
}

func TestActivate_OneShot(t *testing.T) {
	svc, _, _, mailer := newTestService(t)
	token := register(t, svc, mailer, "user@example.com", "secret")
	ctx := context.Background()

	if _, err := svc.Activate(ctx, token); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if _, err := svc.Activate(ctx, token); !errors.Is(err, ErrAlreadyActivated) {
		t.Errorf("second Activate() error = %v, want ErrAlreadyActivated", err)
	}
}

func TestActivate_UnknownToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Activate(context.Background(), "no-such-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Activate() error = %v, want ErrInvalidToken", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "secret")
	if !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Login() error = %v, want ErrUnknownUser", err)
	}
}
