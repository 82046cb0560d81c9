package app

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"interanxy-service/internal/domain"
)

// Claims is the bearer-token payload tying a request to a stored profile.
type Claims struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// AccountService handles registration, login and token verification.
// Display names are not unique; the generated profile ID is the identity.
type AccountService struct {
	users    UserRepository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAccountService(users UserRepository, secret []byte, tokenTTL time.Duration) *AccountService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AccountService{users: users, secret: secret, tokenTTL: tokenTTL, now: time.Now}
}

// Register creates a profile with a generated ID and hashed credential,
// then signs the caller in immediately.
func (s *AccountService) Register(name, password string, role domain.Role) (*domain.UserProfile, string, error) {
	if name == "" || password == "" {
		return nil, "", domain.ErrMissingCredential
	}
	if role != domain.RoleInstructor {
		role = domain.RoleLearner
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	profile := &domain.UserProfile{
		ID:           uuid.NewString(),
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		JoinedCodes:  make(map[string]struct{}),
	}
	if err := s.users.Create(profile); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(profile)
	if err != nil {
		return nil, "", err
	}
	return profile.Clone(), token, nil
}

// Login matches name plus credential across profiles sharing the display
// name and returns the matching one with a fresh token.
func (s *AccountService) Login(name, password string) (*domain.UserProfile, string, error) {
	for _, candidate := range s.users.FindByName(name) {
		if bcrypt.CompareHashAndPassword([]byte(candidate.PasswordHash), []byte(password)) == nil {
			token, err := s.issueToken(candidate)
			if err != nil {
				return nil, "", err
			}
			return candidate.Clone(), token, nil
		}
	}
	return nil, "", domain.ErrInvalidCredentials
}

// Authenticate verifies a bearer token and resolves the live profile.
func (s *AccountService) Authenticate(token string) (*domain.UserProfile, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	profile, err := s.users.Get(claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return profile, nil
}

func (s *AccountService) issueToken(profile *domain.UserProfile) (string, error) {
	now := s.now()
	claims := Claims{
		Name: profile.Name,
		Role: profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
