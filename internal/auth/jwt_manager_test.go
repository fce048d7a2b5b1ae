package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Setenv("JWT_SECRET", "test-signing-key")
	jm, err := NewJWTManager()
	require.NoError(t, err)
	return jm
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewJWTManager()
	assert.Error(t, err)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "tenant-1", "user@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jm.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "a2a-connector", claims.Issuer)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "tenant-1", "user@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = jm.ValidateToken(ctx, token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsTamperedToken(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "tenant-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	_, err = jm.ValidateToken(ctx, token+"x")
	assert.Error(t, err)
}

func TestJWTManager_RefreshToken(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-1", "tenant-1", "user@example.com", time.Hour)
	require.NoError(t, err)

	refreshed, err := jm.RefreshToken(ctx, token, 2*time.Hour)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
}

func TestHashAPIKey_Deterministic(t *testing.T) {
	assert.Equal(t, HashAPIKey("key-1"), HashAPIKey("key-1"))
	assert.NotEqual(t, HashAPIKey("key-1"), HashAPIKey("key-2"))
	assert.Len(t, HashAPIKey("key-1"), 64)
}
