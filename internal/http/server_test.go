package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parley/internal/protocol"
	"parley/internal/storage"
	"parley/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHub(t *testing.T) (*ws.Dispatcher, *storage.CachedDirectory) {
	t.Helper()
	store, err := storage.NewBboltStorage(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := storage.NewCachedDirectory(store)
	return ws.NewDispatcher(dir, store, ws.NewRegistry()), dir
}

func TestAdminServer_ProvisionedUserCanLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub, dir := newHub(t)
	admin := NewAdminServer(dir, hub.Registry(), "")
	chat := NewChatServer(ctx, hub, 8, "")

	adminSrv := httptest.NewServer(admin.Handler())
	defer adminSrv.Close()
	chatSrv := httptest.NewServer(chat.Handler())
	defer chatSrv.Close()

	resp, err := http.Post(adminSrv.URL+"/admin/users", "application/json", bytes.NewBufferString(`{"username":"alice"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	users, err := http.Get(adminSrv.URL + "/admin/users")
	require.NoError(t, err)
	body, err := io.ReadAll(users.Body)
	_ = users.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, users.StatusCode)
	assert.JSONEq(t, `{"users":["alice"]}`, string(body))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(chatSrv.URL, "http")+"/", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	frame, err := protocol.EncodeOutgoing(protocol.OutgoingMessage{Type: protocol.OutLogin, ID: 1, Username: "alice"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	reply, err := protocol.DecodeIncoming(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.InSuccessfulLogin, reply.Type)
	assert.Equal(t, uint64(1), reply.ID)

	assert.Eventually(t, func() bool {
		return len(hub.Registry().Online()) == 1
	}, time.Second, 10*time.Millisecond)

	sessions, err := http.Get(adminSrv.URL + "/admin/sessions")
	require.NoError(t, err)
	defer func() { _ = sessions.Body.Close() }()
	assert.Equal(t, http.StatusOK, sessions.StatusCode)
}

func TestChatServer_Health(t *testing.T) {
	hub, _ := newHub(t)
	chat := NewChatServer(context.Background(), hub, 8, "")

	rec := httptest.NewRecorder()
	chat.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestChatServer_ShutdownClosesWebsockets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub, _ := newHub(t)
	chat := NewChatServer(ctx, hub, 8, "")

	srv := httptest.NewUnstartedServer(chat.Handler())
	srv.Config.BaseContext = chat.server.BaseContext
	srv.Start()
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
