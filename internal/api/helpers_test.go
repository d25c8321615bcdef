package api

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdulhamid529589/kanz-chat/internal/config"
	"github.com/abdulhamid529589/kanz-chat/internal/database"
	"github.com/abdulhamid529589/kanz-chat/internal/server"
	"github.com/abdulhamid529589/kanz-chat/internal/stats"
	"github.com/abdulhamid529589/kanz-chat/internal/testutil"
)

var testSigningKey = []byte("test-signing-key")

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.NewConfig(
		"localhost:8080",
		"postgres://localhost:5432/chat_test",
		base64.StdEncoding.EncodeToString(testSigningKey),
		[]string{"http://localhost:3000"},
		"",
	)
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, db database.ChatRepository) (*ChatApp, *http.ServeMux) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)
	su.On("Decr", mock.Anything)

	logger := testutil.TestLogger(t)
	cs, err := server.NewChatServer(logger, db, su, nil)
	require.NoError(t, err)
	dispatcher := server.NewDispatcher(logger, db, cs, su, config.DefaultDispatchCron)

	mux := http.NewServeMux()
	return NewChatApp(mux, logger, cs, dispatcher, db, testConfig(t)), mux
}

func mintToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func authedRequest(t *testing.T, method, target, userId string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.AddCookie(&http.Cookie{
		Name:  tokenCookieKey,
		Value: mintToken(t, testSigningKey, jwt.MapClaims{userIdClaim: userId}),
	})
	return r
}
