// Package webhooks posts path events to subscriber URLs with retries.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qroute/internal/config"
	"qroute/internal/metrics"
	"qroute/internal/model"
)

var log = logrus.WithField("module", "webhooks")

// Envelope is the body posted for every event.
type Envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	TS   string          `json:"ts"`
	Data model.PathEvent `json:"data"`
}

type delivery struct {
	url      string
	event    string
	body     []byte
	attempts int
}

// Worker fans events out to every configured URL. Deliveries run on a fixed
// pool; a full queue drops the delivery with a warning.
type Worker struct {
	URLs        []string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int
	Workers     int
	// BaseBackoff doubles per failed attempt, capped at an hour.
	BaseBackoff time.Duration

	queue chan delivery
	wg    sync.WaitGroup
}

func NewWorker(cfg config.WebhookConfig) *Worker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Worker{
		URLs:        cfg.URLs,
		Secret:      cfg.Secret,
		HTTP:        &http.Client{Timeout: timeout},
		MaxAttempts: max(cfg.MaxAttempts, 1),
		Workers:     max(cfg.Workers, 1),
		BaseBackoff: time.Second,
	}
}

// Run consumes events until ctx is done or events is closed, then waits for
// in-flight deliveries.
func (w *Worker) Run(ctx context.Context, events <-chan model.PathEvent) {
	w.queue = make(chan delivery, 256)
	for i := 0; i < w.Workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for d := range w.queue {
				w.deliver(ctx, d)
			}
		}()
	}
	defer func() {
		close(w.queue)
		w.wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			w.enqueue(evt)
		}
	}
}

func (w *Worker) enqueue(evt model.PathEvent) {
	body, err := json.Marshal(Envelope{
		ID:   "evt_" + uuid.NewString(),
		Type: evt.Type,
		TS:   time.Now().UTC().Format(time.RFC3339),
		Data: evt,
	})
	if err != nil {
		log.WithError(err).Error("encode webhook envelope")
		return
	}
	for _, u := range w.URLs {
		select {
		case w.queue <- delivery{url: u, event: evt.Type, body: body}:
		default:
			log.Warnf("webhook queue full, dropping %s for %s", evt.Type, u)
			metrics.WebhookDeliveries.WithLabelValues(evt.Type, "dropped").Inc()
		}
	}
}

// deliver retries d with exponential backoff until it succeeds, attempts run
// out or ctx ends.
func (w *Worker) deliver(ctx context.Context, d delivery) {
	for {
		d.attempts++
		start := time.Now()
		code, err := w.post(ctx, d)
		ok := err == nil && code >= 200 && code < 300
		status := "ok"
		if !ok {
			status = "error"
		}
		metrics.WebhookDeliveries.WithLabelValues(d.event, status).Inc()
		metrics.WebhookLatency.WithLabelValues(d.event, status).Observe(float64(time.Since(start).Milliseconds()))
		if ok {
			return
		}
		if d.attempts >= w.MaxAttempts {
			log.Warnf("webhook %s to %s failed after %d attempts: code %d, %v", d.event, d.url, d.attempts, code, err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.nextBackoff(d.attempts - 1)):
		}
	}
}

func (w *Worker) post(ctx context.Context, d delivery) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(d.body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.event)
	if w.Secret != "" {
		req.Header.Set(SignatureHeader, SignatureValue(w.Secret, d.body))
	}
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (w *Worker) nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := w.BaseBackoff * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
