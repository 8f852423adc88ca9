package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/pkg/objectid"
)

func TestTokenManager_AccessRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Minute)
	userID := objectid.New()

	token, err := tm.GenerateAccess(userID, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsedID, role, err := tm.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
	assert.Equal(t, "admin", role)
}

func TestTokenManager_ParseAccess_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Minute)
	other := NewTokenManager("other-secret", time.Minute)

	token, err := tm.GenerateAccess(objectid.New(), "client")
	require.NoError(t, err)

	_, _, err = other.ParseAccess(token)
	assert.Error(t, err)
}

func TestTokenManager_ParseAccess_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	token, err := tm.GenerateAccess(objectid.New(), "client")
	require.NoError(t, err)

	_, _, err = tm.ParseAccess(token)
	assert.Error(t, err)
}
