package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTServiceRoundTrip(t *testing.T) {
	service := NewJWTService("test-secret-key", "assistant-go", time.Hour)

	token, err := service.GenerateToken(42, "zhangsan")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "zhangsan", claims.Username)
	assert.Equal(t, "assistant-go", claims.Issuer)
}

func TestJWTServiceExpiredToken(t *testing.T) {
	service := NewJWTService("test-secret-key", "assistant-go", -time.Hour) // 已过期

	token, err := service.GenerateToken(1, "testuser")
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestJWTServiceWrongSecret(t *testing.T) {
	service := NewJWTService("test-secret-key", "assistant-go", time.Hour)
	other := NewJWTService("wrong-secret-key", "assistant-go", time.Hour)

	token, err := other.GenerateToken(1, "testuser")
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTServiceMissingUserID(t *testing.T) {
	service := NewJWTService("test-secret-key", "assistant-go", time.Hour)

	token, err := service.GenerateToken(0, "anonymous")
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid token", header: "Bearer valid-token", want: "valid-token"},
		{name: "lowercase scheme", header: "bearer valid-token", want: "valid-token"},
		{name: "empty header", header: "", wantErr: true},
		{name: "missing bearer prefix", header: "valid-token", wantErr: true},
		{name: "empty token", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, token)
			}
		})
	}
}
