package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintline/internal/db"
	"maintline/internal/domain"
	"maintline/internal/migrate"
	"maintline/internal/repo"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newProvider(t *testing.T) Provider {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	return Provider{
		Repo:   repo.Repo{DB: conn},
		Secret: []byte("test-secret"),
		Issuer: "maintline",
		TTL:    time.Hour,
		Now:    func() time.Time { return fixedNow },
	}
}

func TestRegisterLoginAndResolve(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	u, err := NewUser(Registration{Name: " Tess ", Email: "Tess@Example.com", Password: "longenough", Role: "technician"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Tess", u.Name)
	assert.Equal(t, "tess@example.com", u.Email)
	assert.Equal(t, domain.RoleTechnician, u.Role)
	assert.NotEqual(t, "longenough", u.PasswordHash)
	require.NoError(t, p.Repo.InsertUser(ctx, nil, u))

	got, token, err := p.Login(ctx, "tess@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	sess, err := p.ResolveSession(ctx, Credential{Bearer: token})
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: u.ID, Role: domain.RoleTechnician, Source: SourceJWT}, sess)
	assert.Equal(t, domain.Actor{ID: u.ID, Role: domain.RoleTechnician}, sess.Actor())

	_, _, err = p.Login(ctx, "tess@example.com", "wrong-password")
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	_, _, err = p.Login(ctx, "nobody@example.com", "longenough")
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestRegistrationValidation(t *testing.T) {
	cases := []Registration{
		{Name: "", Email: "a@example.com", Password: "longenough", Role: "Admin"},
		{Name: "A", Email: "not-an-email", Password: "longenough", Role: "Admin"},
		{Name: "A", Email: "a@example.com", Password: "short", Role: "Admin"},
		{Name: "A", Email: "a@example.com", Password: "longenough", Role: "Guest"},
	}
	for _, in := range cases {
		_, err := NewUser(in, fixedNow)
		assert.Truef(t, errors.Is(err, domain.ErrInvalidInput), "%+v: %v", in, err)
	}
}

func TestTokenRejections(t *testing.T) {
	p := newProvider(t)
	u := domain.User{ID: "u-1", Name: "Ada", Role: domain.RoleAdmin}
	token, exp, err := p.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), exp)

	other := p
	other.Secret = []byte("other-secret")
	_, err = other.ParseToken(token)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	later := p
	later.Now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	_, err = later.ParseToken(token)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "maintline", ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour))},
		Role:             "Owner",
	})
	signed, err := badRole.SignedString(p.Secret)
	require.NoError(t, err)
	_, err = p.ParseToken(signed)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	_, err = p.ResolveSession(context.Background(), Credential{})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestAPIKeySession(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	u, err := NewUser(Registration{Name: "Mona", Email: "mona@example.com", Password: "longenough", Role: "Manager"}, fixedNow)
	require.NoError(t, err)
	require.NoError(t, p.Repo.InsertUser(ctx, nil, u))

	key, hash, err := GenerateAPIKey()
	require.NoError(t, err)
	require.NoError(t, p.Repo.InsertAPIKey(ctx, nil, domain.APIKey{ID: "k-1", UserID: u.ID, KeyHash: hash}))

	sess, err := p.ResolveSession(ctx, Credential{APIKey: key})
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: u.ID, Role: domain.RoleManager, Source: SourceAPIKey}, sess)

	_, err = p.ResolveSession(ctx, Credential{APIKey: "ml_unknown"})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}
