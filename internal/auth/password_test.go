package auth_test

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/auth"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	hash, err := passwords.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, passwords.Verify(hash, "hunter22"))
	assert.ErrorIs(t, passwords.Verify(hash, "wrong"), apperror.ErrUnauthorized)
}

func TestPasswordService_RejectsOverlongPassword(t *testing.T) {
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	_, err := passwords.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestPasswordService_HashesDiffer(t *testing.T) {
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	h1, err := passwords.Hash("same-password")
	require.NoError(t, err)
	h2, err := passwords.Hash("same-password")
	require.NoError(t, err)

	// bcrypt salts each hash.
	assert.NotEqual(t, h1, h2)
}
