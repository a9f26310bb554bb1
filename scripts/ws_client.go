// Package main runs a demo WebSocket client for path events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "ws_client")

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/paths/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: []byte(`{"events":["path.generated","path.failed"]}`)}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Infof("read: %v", err)
				return
			}
			log.Infof("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger a path event
	time.Sleep(500 * time.Millisecond)
	body := []byte(`{"start_point":{"lat":40.7128,"lng":-74.0060},"end_point":{"lat":40.7306,"lng":-73.9866}}`)
	resp, err := http.Post(base+"/path/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	log.Infof("POST /path/generate -> %d %s", resp.StatusCode, bytes.TrimSpace(out))

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
