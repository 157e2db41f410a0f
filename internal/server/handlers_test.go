package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolscout-ai/toolscout/internal/connect"
	"github.com/toolscout-ai/toolscout/internal/event"
	"github.com/toolscout-ai/toolscout/internal/registry"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

type fakeChat struct {
	reply string
	err   error
	texts []string
}

func (c *fakeChat) HandleTurn(ctx context.Context, sess *registry.Session, text string) (string, error) {
	c.texts = append(c.texts, text)
	return c.reply, c.err
}

type fakeCatalog struct {
	snapshot types.CatalogSnapshot
	useCache []bool
}

func (c *fakeCatalog) Servers(ctx context.Context, useCache bool) types.CatalogSnapshot {
	c.useCache = append(c.useCache, useCache)
	return c.snapshot
}

func newTestServer(t *testing.T, chat *fakeChat, catalog *fakeCatalog) (*Server, *registry.Registry, *event.Bus) {
	t.Helper()

	reg := registry.New()
	bus := event.NewBus()
	t.Cleanup(func() {
		reg.Close()
		bus.Close()
	})

	srv := New(DefaultConfig(), reg, chat, catalog, bus)
	return srv, reg, bus
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSession(t *testing.T) {
	srv, reg, _ := newTestServer(t, &fakeChat{}, &fakeCatalog{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.CreatedAt.IsZero())
	assert.Equal(t, 1, reg.Count())
}

func TestSendMessage(t *testing.T) {
	chat := &fakeChat{reply: "It is noon in Tokyo."}
	srv, reg, _ := newTestServer(t, chat, &fakeCatalog{})
	sess := reg.Create()

	rec := doJSON(t, srv.Router(), http.MethodPost, "/session/"+sess.ID+"/message",
		MessageRequest{Text: "what time is it in Tokyo?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "It is noon in Tokyo.", resp.Reply)
	assert.Equal(t, []string{"what time is it in Tokyo?"}, chat.texts)
}

func TestSendMessage_Validation(t *testing.T) {
	srv, reg, _ := newTestServer(t, &fakeChat{}, &fakeCatalog{})
	sess := reg.Create()

	rec := doJSON(t, srv.Router(), http.MethodPost, "/session/missing/message", MessageRequest{Text: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv.Router(), http.MethodPost, "/session/"+sess.ID+"/message", MessageRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/session/"+sess.ID+"/message", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage_HandlerError(t *testing.T) {
	srv, reg, _ := newTestServer(t, &fakeChat{err: errors.New("model down")}, &fakeCatalog{})
	sess := reg.Create()

	rec := doJSON(t, srv.Router(), http.MethodPost, "/session/"+sess.ID+"/message", MessageRequest{Text: "hi"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInternalError, resp.Error.Code)
}

func TestListSessionServers(t *testing.T) {
	srv, reg, _ := newTestServer(t, &fakeChat{}, &fakeCatalog{})
	sess := reg.Create()
	sess.AddConnection(&connect.Connection{
		Server: types.ServerDescriptor{Name: "time", Description: "Time queries."},
		Tools:  []connect.Tool{{Name: "now"}, {Name: "convert"}},
	})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/session/"+sess.ID+"/servers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var servers []ConnectedServer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &servers))
	require.Len(t, servers, 1)
	assert.Equal(t, "time", servers[0].Name)
	assert.Equal(t, 2, servers[0].ToolCount)
}

func TestDeleteSession(t *testing.T) {
	srv, reg, _ := newTestServer(t, &fakeChat{}, &fakeCatalog{})
	sess := reg.Create()

	rec := doJSON(t, srv.Router(), http.MethodDelete, "/session/"+sess.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, reg.Count())

	rec = doJSON(t, srv.Router(), http.MethodDelete, "/session/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCatalog(t *testing.T) {
	catalog := &fakeCatalog{snapshot: types.CatalogSnapshot{
		Servers:   []types.ServerDescriptor{{Name: "time"}, {Name: "fetch"}},
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	srv, _, _ := newTestServer(t, &fakeChat{}, catalog)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CatalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Servers, 2)
	assert.Equal(t, []bool{true}, catalog.useCache)

	doJSON(t, srv.Router(), http.MethodGet, "/catalog?refresh=true", nil)
	assert.Equal(t, []bool{true, false}, catalog.useCache)
}

func TestHealth(t *testing.T) {
	srv, reg, _ := newTestServer(t, &fakeChat{}, &fakeCatalog{})
	reg.Create()

	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, float64(1), resp["sessions"])
}

func TestStreamEvents_SessionFilter(t *testing.T) {
	srv, _, bus := newTestServer(t, &fakeChat{}, &fakeCatalog{})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/event?sessionID=abc", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	go func() {
		// Give the handler a moment to subscribe.
		time.Sleep(100 * time.Millisecond)
		bus.PublishSync(event.Event{Type: event.MessageSent, Data: event.MessageSentData{SessionID: "other", Text: "ignore me"}})
		bus.PublishSync(event.Event{Type: event.MessageSent, Data: event.MessageSentData{SessionID: "abc", Text: "hello abc"}})
	}()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		// The first delivered event must be the matching session's.
		assert.Contains(t, line, "message.sent")
		assert.Contains(t, line, "hello abc")
		assert.NotContains(t, line, "ignore me")
		return
	}
}
