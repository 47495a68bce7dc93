package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	hash, err := auth.HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	users := newFakeUserRepo(
		&domain.User{ID: "u1", Username: "alice", PasswordHash: hash, Role: domain.RoleCollaborator, IsActive: true},
		&domain.User{ID: "u2", Username: "gone", PasswordHash: hash, Role: domain.RoleTechnician, IsActive: false},
	)
	tokens := auth.NewTokenManager("test-secret", 60)
	return NewAuthService(users, tokens), users
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	user, token, expiresAt, err := svc.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	claims, err := auth.NewTokenManager("test-secret", 60).ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, domain.RoleCollaborator, claims.Role)
}

func TestLoginFailuresCollapseToUnauthorized(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, _, _, err := svc.Login(context.Background(), "alice", "wrong")
	requireDomainCode(t, err, "UNAUTHORIZED")

	_, _, _, err = svc.Login(context.Background(), "nobody", "hunter2")
	requireDomainCode(t, err, "UNAUTHORIZED")

	_, _, _, err = svc.Login(context.Background(), "gone", "hunter2")
	requireDomainCode(t, err, "UNAUTHORIZED")
}
