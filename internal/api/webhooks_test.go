package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/config"
	"qroute/internal/model"
	"qroute/internal/webhooks"
)

func TestWebhooksReceivePathEvents(t *testing.T) {
	got := make(chan webhooks.Envelope, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !webhooks.VerifyHMAC("shh", body, r.Header.Get(webhooks.SignatureHeader)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var env webhooks.Envelope
		_ = json.Unmarshal(body, &env)
		got <- env
	}))
	defer hook.Close()

	s := newTestServer(t, func(c *config.Config) {
		c.Webhooks.URLs = []string{hook.URL}
		c.Webhooks.Secret = "shh"
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartWebhooks(ctx)

	require.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodPost, "/path/generate", "application/json", pathBody).Code)
	select {
	case env := <-got:
		assert.Equal(t, model.EventPathGenerated, env.Type)
		require.NotNil(t, env.Data.Record)
		assert.Len(t, env.Data.Record.Path, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
}
