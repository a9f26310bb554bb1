package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/model"
)

func readMsg(t *testing.T, c *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

func TestPathEventsWebSocket(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/paths/ws"
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteJSON(wsMessage{Type: "connection_init"}))
	assert.Equal(t, "connection_ack", readMsg(t, c).Type)

	require.NoError(t, c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: []byte(`{"events":["path.generated"]}`)}))
	// messages are handled in order, so the pong means the subscription is live
	require.NoError(t, c.WriteJSON(wsMessage{Type: "ping"}))
	assert.Equal(t, "pong", readMsg(t, c).Type)

	s.Broker.Publish(pathsTopic, model.PathEvent{Type: model.EventPathFailed, Error: "filtered out"})
	resp, err := http.Post(ts.URL+"/path/generate", "application/json", strings.NewReader(pathBody))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := readMsg(t, c)
	require.Equal(t, "next", msg.Type)
	assert.Equal(t, "1", msg.ID)
	var evt model.PathEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, model.EventPathGenerated, evt.Type)
	require.NotNil(t, evt.Record)
	assert.Len(t, evt.Record.Path, 2)

	require.NoError(t, c.WriteJSON(wsMessage{Type: "complete", ID: "1"}))
	msg = readMsg(t, c)
	assert.Equal(t, "complete", msg.Type)
	assert.Equal(t, "1", msg.ID)
}

func TestPathEventsWebSocketRejectsDuplicateID(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/paths/ws", nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteJSON(wsMessage{Type: "subscribe", ID: "a"}))
	require.NoError(t, c.WriteJSON(wsMessage{Type: "subscribe", ID: "a"}))
	msg := readMsg(t, c)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "a", msg.ID)
}
