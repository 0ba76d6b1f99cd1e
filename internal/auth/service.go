package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUsernameInvalid    = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid       = errors.New("invalid email format")
)

// UserStore is the persistence the account service needs.
type UserStore interface {
	CreateUser(user *entities.User) error
	GetUserByUsername(username string) (*entities.User, error)
	GetUserByLogin(login string) (*entities.User, error)
	UpdatePassword(userID uint, hash, salt string) error
	TouchLastLogin(userID uint, at time.Time) error
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      entities.UserRole
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

// Service handles account creation, credential checks and token issuance.
type Service struct {
	users  UserStore
	tokens *TokenService
	hasher Hasher

	// Derived once so unknown usernames cost the same as wrong passwords.
	dummyHash string
	dummySalt string
}

// NewService creates a new account service.
func NewService(users UserStore, tokens *TokenService, hasher Hasher) (*Service, error) {
	dummyHash, dummySalt, err := hasher.Hash("bookworms-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy credential: %w", err)
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		dummyHash: dummyHash,
		dummySalt: dummySalt,
	}, nil
}

// Tokens returns the token service used to sign issued tokens.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Register creates a parent or teacher account. Admin accounts cannot be
// self-registered; use CreateUser.
func (s *Service) Register(in RegisterInput) (*entities.User, error) {
	if in.Role != entities.UserRoleParent && in.Role != entities.UserRoleTeacher {
		return nil, ErrInvalidRole
	}
	return s.CreateUser(in)
}

// CreateUser validates the input, hashes the password and stores the account.
func (s *Service) CreateUser(in RegisterInput) (*entities.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if in.Username == "" {
		return nil, ErrUsernameRequired
	}
	if in.Email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(in.Username) {
		return nil, ErrUsernameInvalid
	}
	if err := ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, salt, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AUTH] Created %s account %q", user.Role, user.Username)
	return user, nil
}

// ValidateEmail checks the format and length of an email address.
func ValidateEmail(email string) error {
	// RFC 5321 limit is 254
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// Authenticate validates credentials. Unknown users and wrong passwords both
// return ErrInvalidCredentials.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" || len(password) > MaxPasswordLength {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByLogin(login)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash, s.dummySalt)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash, user.PasswordSalt) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(user.ID, now); err != nil {
		log.Printf("[AUTH] Failed to record last login for user %d: %v", user.ID, err)
	} else {
		user.LastLoginAt = &now
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(login, password string) (*LoginResult, error) {
	user, err := s.Authenticate(login, password)
	if err != nil {
		return nil, err
	}
	return s.IssueToken(user)
}

// IssueToken mints a bearer token for user.
func (s *Service) IssueToken(user *entities.User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(Identity{Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// ChangePassword replaces the password of username after checking the old one.
func (s *Service) ChangePassword(username, oldPassword, newPassword string) error {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash, user.PasswordSalt) {
		return ErrInvalidPassword
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(user.ID, hash, salt)
}
