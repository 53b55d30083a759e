// Package identity resolves credentials to sessions and issues tokens.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"maintline/internal/domain"
	"maintline/internal/repo"
	"maintline/internal/validate"
)

// ErrUnauthenticated is returned for missing, malformed or rejected credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

const (
	SourceJWT    = "jwt"
	SourceAPIKey = "api_key"
)

// Session is the resolved caller. Role is fixed for the life of the session.
type Session struct {
	UserID string
	Role   domain.Role
	Source string
}

func (s Session) Actor() domain.Actor {
	return domain.Actor{ID: s.UserID, Role: s.Role}
}

// Credential carries whichever of the two supported credentials the caller sent.
type Credential struct {
	Bearer string
	APIKey string
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type Provider struct {
	Repo   repo.Repo
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (p Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Issue signs an HS256 token carrying the user's id and role.
func (p Provider) Issue(u domain.User) (string, time.Time, error) {
	if len(p.Secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := p.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    p.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Role: string(u.Role),
		Name: u.Name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and returns its session.
func (p Provider) ParseToken(token string) (Session, error) {
	if len(p.Secret) == 0 {
		return Session{}, fmt.Errorf("%w: jwt secret not configured", ErrUnauthenticated)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	}
	if p.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.Issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.Secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return Session{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: subject claim required", ErrUnauthenticated)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return Session{UserID: claims.Subject, Role: role, Source: SourceJWT}, nil
}

// ResolveSession accepts a bearer token or an API key, preferring the token.
func (p Provider) ResolveSession(ctx context.Context, cred Credential) (Session, error) {
	if token := strings.TrimSpace(cred.Bearer); token != "" {
		return p.ParseToken(token)
	}
	if key := strings.TrimSpace(cred.APIKey); key != "" {
		return p.resolveAPIKey(ctx, key)
	}
	return Session{}, fmt.Errorf("%w: credentials required", ErrUnauthenticated)
}

func (p Provider) resolveAPIKey(ctx context.Context, key string) (Session, error) {
	apiKey, err := p.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(key))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: unknown api key", ErrUnauthenticated)
		}
		return Session{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	u, err := p.Repo.GetUser(ctx, nil, apiKey.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: api key user missing", ErrUnauthenticated)
		}
		return Session{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return Session{UserID: u.ID, Role: u.Role, Source: SourceAPIKey}, nil
}

// Login checks the password and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (p Provider) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	u, err := p.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, "", fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
		}
		return domain.User{}, "", fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return domain.User{}, "", fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	}
	token, _, err := p.Issue(u)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Registration is the input for a new user account.
type Registration struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
}

// NewUser validates the registration and builds a user with a hashed password.
func NewUser(in Registration, now time.Time) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return domain.User{}, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now.UTC().Format(time.RFC3339),
	}, nil
}

// GenerateAPIKey returns a new plaintext key and its stored hash.
func GenerateAPIKey() (string, string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	key := "ml_" + hex.EncodeToString(buf)
	return key, repo.HashAPIKey(key), nil
}
