package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "password1")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", hash)

	ok, err := h.Compare(ctx, &hash, "password1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(ctx, &hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_NilHashNeverMatches(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)

	ok, err := h.Compare(context.Background(), nil, dummyPassword)
	require.NoError(t, err)
	assert.False(t, ok)

	empty := ""
	ok, err = h.Compare(context.Background(), &empty, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_TooLongPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)

	_, err := h.Hash(context.Background(), strings.Repeat("a", 73))
	assert.Equal(t, apperror.ErrCodeValidation, apperror.KindOf(err))
}

func TestPasswordHasher_WaitingRespectsContext(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	require.True(t, h.sem.TryAcquire(1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Hash(ctx, "password1")
	assert.Equal(t, apperror.ErrCodeInternal, apperror.KindOf(err))
}
