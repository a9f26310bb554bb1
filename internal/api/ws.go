package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"qroute/internal/model"
)

// Path events over WebSocket, framed like graphql-transport-ws:
// connection_init/connection_ack, subscribe/next/complete and ping/pong.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// subscribePayload optionally narrows a subscription to some event types.
type subscribePayload struct {
	Events []string `json:"events"`
}

// PathEventsWSHandler handles /v1/paths/ws
func (s *Server) PathEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade")
		return
	}
	defer func() { _ = conn.Close() }()

	var wmu sync.Mutex
	write := func(v wsMessage) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	subs := map[string]chan model.PathEvent{}
	var wg sync.WaitGroup
	defer func() {
		for id, ch := range subs {
			s.Broker.Unsubscribe(pathsTopic, ch)
			delete(subs, id)
		}
		wg.Wait()
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })

	done := make(chan struct{})
	defer close(done)
	acked := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			if acked {
				continue
			}
			acked = true
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			if msg.ID == "" || subs[msg.ID] != nil {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"missing or duplicate subscription id"}`)})
				continue
			}
			var pl subscribePayload
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &pl); err != nil {
					_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"invalid payload"}`)})
					continue
				}
			}
			ch := s.Broker.Subscribe(pathsTopic)
			subs[msg.ID] = ch
			wg.Add(1)
			go func(id string, c chan model.PathEvent, events []string) {
				defer wg.Done()
				for evt := range c {
					if len(events) > 0 && !lo.Contains(events, evt.Type) {
						continue
					}
					payload, err := json.Marshal(evt)
					if err != nil {
						continue
					}
					if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
						return
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch, pl.Events)
		case "complete":
			if ch, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(pathsTopic, ch)
				delete(subs, msg.ID)
			}
		}
	}
}
