package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdulhamid529589/kanz-chat/internal/database"
	"github.com/abdulhamid529589/kanz-chat/internal/server"
	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

func dbConversation(id string, participants ...string) database.Conversation {
	conv := database.Conversation{Id: id, IsGroup: len(participants) > 2}
	for _, p := range participants {
		conv.Participants = append(conv.Participants, database.Participant{
			ConversationId: id,
			AccountId:      p,
		})
	}
	return conv
}

func TestGetConversations(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("ListConversations", "u1").Return([]database.Conversation{
		dbConversation("conv-1", "u1", "u2"),
		dbConversation("conv-2", "u1", "u3"),
	}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, "/api/conversations", "u1"))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []types.Conversation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "conv-1", resp[0].Id)
	assert.Equal(t, []string{"u1", "u2"}, resp[0].Participants)
	db.AssertExpectations(t)
}

func TestGetConversationsStorageError(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("ListConversations", "u1").Return([]database.Conversation{}, assert.AnError)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, "/api/conversations", "u1"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestLeaveConversation(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("GetConversation", "conv-1").Return(dbConversation("conv-1", "u1", "u2"), nil)
	db.On("RemoveParticipant", "conv-1", "u1").Return(nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodDelete, "/api/conversations/conv-1/participants", "u1"))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	db.AssertExpectations(t)
}

func TestLeaveConversationNotParticipant(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("GetConversation", "conv-1").Return(dbConversation("conv-1", "u2", "u3"), nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodDelete, "/api/conversations/conv-1/participants", "u1"))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	db.AssertNotCalled(t, "RemoveParticipant", mock.Anything, mock.Anything)
}

func TestGetMessages(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("GetConversation", "conv-1").Return(dbConversation("conv-1", "u1", "u2"), nil)
	db.On("ListMessages", "conv-1", "u1", mock.AnythingOfType("time.Time"), defaultMessageLimit).
		Return([]database.Message{
			{Id: "m1", ConversationId: "conv-1", SenderId: "u2", Content: "hello", CreatedAt: time.Now()},
		}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, "/api/messages?conversation_id=conv-1", "u1"))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []types.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "m1", resp[0].Id)
	db.AssertExpectations(t)
}

func TestGetMessagesPagination(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	before := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	db.On("GetConversation", "conv-1").Return(dbConversation("conv-1", "u1", "u2"), nil)
	db.On("ListMessages", "conv-1", "u1", before, 10).Return([]database.Message{}, nil)

	target := "/api/messages?conversation_id=conv-1&before=" + before.Format(time.RFC3339) + "&limit=10"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, target, "u1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	db.AssertExpectations(t)
}

func TestGetMessagesValidation(t *testing.T) {
	tcases := []struct {
		name   string
		target string
		code   int
	}{
		{
			name:   "missing conversation id",
			target: "/api/messages",
			code:   http.StatusBadRequest,
		},
		{
			name:   "malformed before",
			target: "/api/messages?conversation_id=conv-1&before=yesterday",
			code:   http.StatusBadRequest,
		},
		{
			name:   "malformed limit",
			target: "/api/messages?conversation_id=conv-1&limit=lots",
			code:   http.StatusBadRequest,
		},
		{
			name:   "non-positive limit",
			target: "/api/messages?conversation_id=conv-1&limit=0",
			code:   http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockChatRepository{}
			_, mux := newTestApp(t, db)
			db.On("GetConversation", "conv-1").Return(dbConversation("conv-1", "u1", "u2"), nil)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, tc.target, "u1"))

			assert.Equal(t, tc.code, rr.Code)
			db.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetMessagesForbiddenForNonParticipant(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("GetConversation", "conv-1").Return(dbConversation("conv-1", "u2", "u3"), nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, "/api/messages?conversation_id=conv-1", "u1"))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	db.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetScheduledMessages(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	sendAt := time.Now().Add(time.Hour)
	db.On("ListScheduled", "u1").Return([]database.Message{
		{Id: "m1", ConversationId: "conv-1", SenderId: "u1", Content: "later", IsScheduled: true, ScheduledFor: &sendAt},
	}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodGet, "/api/messages/scheduled", "u1"))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []types.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.True(t, resp[0].IsScheduled)
	db.AssertExpectations(t)
}

func TestTriggerDispatch(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	db.On("ListDueScheduled", mock.AnythingOfType("time.Time"), mock.AnythingOfType("int")).
		Return([]database.Message{}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(t, http.MethodPost, "/api/dispatch", "u1"))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 0, resp["dispatched"])
}

func TestServeWs(t *testing.T) {
	db := &database.MockChatRepository{}
	app, mux := newTestApp(t, db)
	go app.cs.Run()

	db.On("GetAccountById", "u1").Return(database.User{Id: "u1", Username: "alice"}, nil)

	ts := httptest.NewServer(mux)
	defer ts.Close()

	token := mintToken(t, testSigningKey, jwt.MapClaims{userIdClaim: "u1"})
	wsUrl := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token

	conn, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	// registering the connection announces the user's presence
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev server.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "user_status", ev.Type)
	db.AssertExpectations(t)
}

func TestServeWsUnauthorized(t *testing.T) {
	db := &database.MockChatRepository{}
	_, mux := newTestApp(t, db)

	ts := httptest.NewServer(mux)
	defer ts.Close()

	wsUrl := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsUrl, nil)

	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
