package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadlinehq/leadline/internal/channel"
	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/orchestrator"
	"github.com/leadlinehq/leadline/internal/webhook"
)

type recordingProcessor struct {
	mu       sync.Mutex
	inbounds []channel.Inbound
	seen     chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{seen: make(chan struct{}, 16)}
}

func (p *recordingProcessor) HandleInbound(ctx context.Context, in channel.Inbound) (orchestrator.Reply, error) {
	p.mu.Lock()
	p.inbounds = append(p.inbounds, in)
	p.mu.Unlock()
	p.seen <- struct{}{}
	return orchestrator.Reply{Text: "ok"}, nil
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inbounds)
}

const testAppSecret = "meta-app-secret"

func newMetaWebhookTestHandler(t *testing.T) (*MetaWebhookHandler, *recordingProcessor) {
	t.Helper()
	proc := newRecordingProcessor()
	h := NewMetaWebhookHandler(slog.Default(), proc, config.MetaConfig{
		VerifyToken: "verify-me",
		AppSecret:   testAppSecret,
	})
	return h, proc
}

func performMeta(h *MetaWebhookHandler, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	h.Register(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestVerifyHandshakeEchoesChallenge(t *testing.T) {
	h, _ := newMetaWebhookTestHandler(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/meta?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := performMeta(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestVerifyHandshakeWrongToken(t *testing.T) {
	h, _ := newMetaWebhookTestHandler(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/meta?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := performMeta(h, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func whatsappBody() []byte {
	return []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{"changes": [{"field": "messages", "value": {"messages": [
			{"from": "5511999990000", "type": "text", "text": {"body": "oi"}}
		]}}]}]
	}`)
}

func TestReceiveSignedPayloadAccepted(t *testing.T) {
	h, proc := newMetaWebhookTestHandler(t)
	body := whatsappBody()

	req := httptest.NewRequest(http.MethodPost, "/webhook/meta", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", webhook.SignMeta(testAppSecret, body))
	rec := performMeta(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	select {
	case <-proc.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message was not processed")
	}
	assert.Equal(t, 1, proc.count())
}

func TestReceiveTamperedPayloadRejected(t *testing.T) {
	h, proc := newMetaWebhookTestHandler(t)
	body := whatsappBody()
	signature := webhook.SignMeta(testAppSecret, body)

	tampered := bytes.Replace(body, []byte("oi"), []byte("ataque"), 1)
	req := httptest.NewRequest(http.MethodPost, "/webhook/meta", bytes.NewReader(tampered))
	req.Header.Set("X-Hub-Signature-256", signature)
	rec := performMeta(h, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, proc.count())
}

func TestReceiveMissingSignatureRejected(t *testing.T) {
	h, proc := newMetaWebhookTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/meta", bytes.NewReader(whatsappBody()))
	rec := performMeta(h, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, proc.count())
}

func TestReceiveUnknownObjectStillAcknowledged(t *testing.T) {
	h, proc := newMetaWebhookTestHandler(t)
	body := []byte(`{"object": "mystery"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/meta", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", webhook.SignMeta(testAppSecret, body))
	rec := performMeta(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, proc.count())
}
