package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestUserCreateHashesPassword(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), bcrypt.MinCost)

	user, err := svc.Create(context.Background(), UserCreateInput{
		Username:   "bob",
		Email:      "bob@example.com",
		Password:   "secret",
		Role:       domain.RoleTechnician,
		Department: "IT",
	})
	require.NoError(t, err)
	require.True(t, user.IsActive)
	require.NotEqual(t, "secret", user.PasswordHash)
	require.NoError(t, auth.ComparePassword(user.PasswordHash, "secret"))
}

func TestUserCreateValidation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), bcrypt.MinCost)

	_, err := svc.Create(context.Background(), UserCreateInput{Username: "x", Email: "", Password: "p", Role: domain.RoleTechnician})
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Create(context.Background(), UserCreateInput{Username: "x", Email: "e@e", Password: "p", Role: "WIZARD"})
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func TestUserUpdatePartial(t *testing.T) {
	users := newFakeUserRepo(&domain.User{ID: "u1", Username: "bob", Email: "old@example.com", Role: domain.RoleTechnician, IsActive: true})
	svc := NewUserService(users, bcrypt.MinCost)

	inactive := false
	role := domain.RoleDirector
	updated, err := svc.Update(context.Background(), "u1", UserUpdateInput{
		Role:     &role,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleDirector, updated.Role)
	require.False(t, updated.IsActive)
	require.Equal(t, "old@example.com", updated.Email)
	require.Equal(t, "bob", updated.Username)
}

func TestUserUpdateMissing(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), bcrypt.MinCost)

	active := true
	_, err := svc.Update(context.Background(), "nope", UserUpdateInput{IsActive: &active})
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestListTechniciansFiltersInactive(t *testing.T) {
	users := newFakeUserRepo(
		&domain.User{ID: "u1", Username: "active-tech", Role: domain.RoleTechnician, IsActive: true},
		&domain.User{ID: "u2", Username: "gone-tech", Role: domain.RoleTechnician, IsActive: false},
		&domain.User{ID: "u3", Username: "admin", Role: domain.RoleAdministrator, IsActive: true},
	)
	svc := NewUserService(users, bcrypt.MinCost)

	technicians, err := svc.ListTechnicians(context.Background())
	require.NoError(t, err)
	require.Len(t, technicians, 1)
	require.Equal(t, "active-tech", technicians[0].Username)
}
