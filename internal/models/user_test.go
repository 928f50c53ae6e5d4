// internal/models/user_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordHashing(t *testing.T) {
	user := &User{Email: "buyer@example.com"}
	require.NoError(t, user.SetPassword("SecurePass123!"))

	assert.NotEqual(t, "SecurePass123!", user.PasswordHash)
	assert.NoError(t, user.CheckPassword("SecurePass123!"))
	assert.Error(t, user.CheckPassword("WrongPass123!"))
}

func TestUserIsAdmin(t *testing.T) {
	admin := &User{Role: UserRoleAdmin}
	customer := &User{Role: UserRoleCustomer}

	assert.True(t, admin.IsAdmin())
	assert.False(t, customer.IsAdmin())
}
