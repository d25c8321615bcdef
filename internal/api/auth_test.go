package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"

	"github.com/abdulhamid529589/kanz-chat/internal/database"
)

func TestExtractUserIdFromToken(t *testing.T) {
	app, _ := newTestApp(t, &database.MockChatRepository{})

	tcases := []struct {
		name   string
		token  string
		userId string
		err    bool
	}{
		{
			name:   "valid token",
			token:  mintToken(t, testSigningKey, jwt.MapClaims{userIdClaim: "u1"}),
			userId: "u1",
		},
		{
			name:  "wrong key",
			token: mintToken(t, []byte("other-key"), jwt.MapClaims{userIdClaim: "u1"}),
			err:   true,
		},
		{
			name: "expired token",
			token: mintToken(t, testSigningKey, jwt.MapClaims{
				userIdClaim: "u1",
				"exp":       time.Now().Add(-time.Hour).Unix(),
			}),
			err: true,
		},
		{
			name:  "missing user id claim",
			token: mintToken(t, testSigningKey, jwt.MapClaims{"sub": "u1"}),
			err:   true,
		},
		{
			name:  "garbage token",
			token: "not.a.token",
			err:   true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, err := app.extractUserIdFromToken(tc.token)
			if tc.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.userId, userId)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "cookie-token"})

		token, err := tokenFromRequest(r)
		assert.NoError(t, err)
		assert.Equal(t, "cookie-token", token)
	})

	t.Run("query fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)

		token, err := tokenFromRequest(r)
		assert.NoError(t, err)
		assert.Equal(t, "query-token", token)
	})

	t.Run("cookie wins over query", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "cookie-token"})

		token, err := tokenFromRequest(r)
		assert.NoError(t, err)
		assert.Equal(t, "cookie-token", token)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)

		_, err := tokenFromRequest(r)
		assert.Error(t, err)
	})
}

func TestUserIdContext(t *testing.T) {
	ctx := WithUserId(context.Background(), "u1")

	userId, ok := UserId(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", userId)

	_, ok = UserId(context.Background())
	assert.False(t, ok)
}
