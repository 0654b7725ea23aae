package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("u1", "Alice")
	require.NoError(t, err)

	identity, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "Alice", identity.DisplayName)
}

func TestJWTManager_Verify(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name:    "missing token",
			token:   func() string { return "" },
			wantErr: ErrMissingToken,
		},
		{
			name:    "garbage token",
			token:   func() string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func() string {
				other := NewJWTManager("other-secret", time.Hour)
				tok, _ := other.Generate("u1", "Alice")
				return tok
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired token",
			token: func() string {
				expired := NewJWTManager("test-secret", -time.Minute)
				tok, _ := expired.Generate("u1", "Alice")
				return tok
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "empty user id claim",
			token: func() string {
				tok, _ := m.Generate("", "Alice")
				return tok
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
