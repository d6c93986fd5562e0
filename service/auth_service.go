package service

import (
	"context"
	"errors"
	"fmt"
	"knoword-api/logger"
	"knoword-api/model"
	"knoword-api/repository"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultBcryptCost      = 12
	defaultVerificationTTL = 24 * time.Hour
)

// IUserRepository is the persistence AuthService needs.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	MarkEmailVerified(ctx context.Context, token string, now time.Time) (bool, error)
}

type AuthOption func(*AuthService)

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// WithVerification sets the link sent in verification e-mails and how long
// the token in it stays valid.
func WithVerification(verifyURL string, ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		s.verifyURL = verifyURL
		if ttl > 0 {
			s.verificationTTL = ttl
		}
	}
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// AuthService handles account registration and e-mail verification.
type AuthService struct {
	userRepo        IUserRepository
	mailer          Mailer
	cost            int
	verifyURL       string
	verificationTTL time.Duration
	now             func() time.Time
}

func NewAuthService(userRepo IUserRepository, mailer Mailer, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo:        userRepo,
		mailer:          mailer,
		cost:            defaultBcryptCost,
		verificationTTL: defaultVerificationTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer == nil {
		s.mailer = LogMailer{}
	}
	return s
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	return CheckPasswordHash(password, hash)
}

// CheckPasswordHash reports whether password matches the bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash is compared against when the e-mail is unknown so that
// login takes about as long as with a wrong password.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), defaultBcryptCost)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to prepare dummy password hash")
			return
		}
		dummyHash = string(h)
	})
	return dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and e-mails a verification link.
// A failure to send the e-mail is logged; the account is still created.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	log := logger.Log.WithFields(logrus.Fields{
		"username": req.Username,
	})

	taken, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}
	taken, err = s.userRepo.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	expires := s.now().Add(s.verificationTTL)
	user := &model.User{
		Username:                 req.Username,
		Email:                    email,
		Password:                 hash,
		VerificationToken:        uuid.NewString(),
		VerificationTokenExpires: &expires,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			// Lost a race with a concurrent registration.
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	log = log.WithField("user_id", user.ID)
	log.Info("User registered")

	if err := s.mailer.Send(ctx, s.verificationMessage(user)); err != nil {
		log.WithError(err).Warn("Verification e-mail was not sent")
	}
	return user, nil
}

func (s *AuthService) verificationMessage(user *model.User) Message {
	link := s.verifyURL
	if u, err := url.Parse(s.verifyURL); err == nil {
		q := u.Query()
		q.Set("token", user.VerificationToken)
		u.RawQuery = q.Encode()
		link = u.String()
	}
	return Message{
		To:      user.Email,
		Subject: "Verify your Knoword account",
		Body: fmt.Sprintf("Hi %s,\n\nConfirm your e-mail address by opening the link below:\n\n%s\n\nThe link expires in %s.\n",
			user.Username, link, s.verificationTTL),
	}
}

// VerifyEmail marks the account holding token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidVerificationToken
	}
	ok, err := s.userRepo.MarkEmailVerified(ctx, token, s.now())
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if !ok {
		return ErrInvalidVerificationToken
	}
	return nil
}

func (s *AuthService) CheckEmailAvailability(ctx context.Context, email string) (bool, error) {
	taken, err := s.userRepo.EmailExists(ctx, normalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return !taken, nil
}

func (s *AuthService) CheckUsernameAvailability(ctx context.Context, username string) (bool, error) {
	taken, err := s.userRepo.UsernameExists(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !taken, nil
}
