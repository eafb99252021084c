package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadlinehq/leadline/internal/channel"
	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/contact"
	"github.com/leadlinehq/leadline/internal/engine"
	"github.com/leadlinehq/leadline/internal/interaction"
	"github.com/leadlinehq/leadline/internal/prompt"
)

type memLedger struct {
	mu       sync.Mutex
	contacts map[string]contact.Contact
	touched  []string
}

func newMemLedger(seed ...contact.Contact) *memLedger {
	l := &memLedger{contacts: map[string]contact.Contact{}}
	for _, c := range seed {
		l.contacts[c.Channel+"/"+c.ExternalID] = c
	}
	return l
}

func (l *memLedger) GetOrCreate(ctx context.Context, chType, externalID string) (contact.Contact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := chType + "/" + externalID
	if c, ok := l.contacts[key]; ok {
		return c, nil
	}
	c := contact.Contact{ID: "id-" + externalID, Channel: chType, ExternalID: externalID}
	l.contacts[key] = c
	return c, nil
}

func (l *memLedger) TouchInbound(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touched = append(l.touched, id)
	return nil
}

type memLog struct {
	mu      sync.Mutex
	records []interaction.Interaction
}

func (m *memLog) Append(ctx context.Context, contactID, role, content string, needsHuman bool) (interaction.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := interaction.Interaction{
		ContactID:  contactID,
		Role:       role,
		Content:    content,
		NeedsHuman: needsHuman,
		CreatedAt:  time.Now(),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memLog) ListRecent(ctx context.Context, contactID string, limit int) ([]interaction.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []interaction.Interaction
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].ContactID == contactID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memLog) last() interaction.Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[len(m.records)-1]
}

type stubPrompts struct{ snap *prompt.Snapshot }

func (s *stubPrompts) Snapshot() *prompt.Snapshot { return s.snap }

type stubEngine struct {
	mu      sync.Mutex
	calls   int
	systems []string
	reply   string
	err     error
}

func (s *stubEngine) Generate(ctx context.Context, system string, history []engine.Turn, media []engine.Media) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.systems = append(s.systems, system)
	return s.reply, s.err
}

func (s *stubEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubClassifier struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func (s *stubClassifier) ClassifyAndMerge(ctx context.Context, contactID string, turns []interaction.Turn) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.done != nil {
		close(s.done)
	}
	return nil
}

type stubRescheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *stubRescheduler) Reschedule(ctx context.Context, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, contactID)
	return nil
}

type recordingSender struct {
	ct   channel.ChannelType
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Type() channel.ChannelType { return r.ct }

func (r *recordingSender) Send(ctx context.Context, externalID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

type fixture struct {
	svc        *Service
	ledger     *memLedger
	log        *memLog
	eng        *stubEngine
	classifier *stubClassifier
	followups  *stubRescheduler
	sender     *recordingSender
}

func newFixture(t *testing.T, seed ...contact.Contact) *fixture {
	t.Helper()
	ledger := newMemLedger(seed...)
	log := &memLog{}
	eng := &stubEngine{reply: "olá! como posso ajudar?"}
	cls := &stubClassifier{done: make(chan struct{})}
	followups := &stubRescheduler{}
	sender := &recordingSender{ct: channel.ChannelWhatsApp}

	registry := channel.NewRegistry()
	registry.MustRegister(sender)

	svc := NewService(slog.Default(), ledger, log, &stubPrompts{snap: &prompt.Snapshot{System: "system base"}},
		eng, cls, followups, registry, config.AgentConfig{
			HistoryWindow: 20,
			PaymentLink:   "https://pay.example.com/x",
			BookingLink:   "https://book.example.com/x",
		})
	return &fixture{svc: svc, ledger: ledger, log: log, eng: eng, classifier: cls, followups: followups, sender: sender}
}

func waitClassified(t *testing.T, f *fixture) {
	t.Helper()
	select {
	case <-f.classifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("classifier was not invoked")
	}
}

func TestHandleInboundHelloFlow(t *testing.T) {
	f := newFixture(t)

	reply, err := f.svc.HandleInbound(context.Background(), channel.Inbound{
		Channel: channel.ChannelWhatsApp, ExternalID: "5511999990000", Text: "olá",
	})
	require.NoError(t, err)
	assert.Equal(t, "olá! como posso ajudar?", reply.Text)
	assert.False(t, reply.NeedsHuman)

	// Inbound and reply both persisted, reply dispatched, follow-up queued.
	assert.Equal(t, 1, f.eng.callCount())
	assert.Equal(t, []string{"olá! como posso ajudar?"}, f.sender.sent)
	require.Len(t, f.followups.ids, 1)
	require.Len(t, f.ledger.touched, 1)

	waitClassified(t, f)
}

func TestHandleInboundPausedShortCircuit(t *testing.T) {
	f := newFixture(t, contact.Contact{
		ID: "c-paused", Channel: "whatsapp", ExternalID: "551188887777",
		BotPaused: true, LeadTier: "B",
	})

	reply, err := f.svc.HandleInbound(context.Background(), channel.Inbound{
		Channel: channel.ChannelWhatsApp, ExternalID: "551188887777", Text: "preciso falar com alguém",
	})
	require.NoError(t, err)

	assert.Empty(t, reply.Text, "paused contact must get an empty reply")
	assert.True(t, reply.NeedsHuman)
	assert.Equal(t, "B", reply.Tier)

	assert.Equal(t, 0, f.eng.callCount(), "engine must never run for a paused contact")
	assert.Empty(t, f.sender.sent)

	last := f.log.last()
	assert.True(t, last.NeedsHuman, "inbound must be persisted flagged for a human")
	assert.Equal(t, interaction.RoleUser, last.Role)
}

func TestHandleInboundEngineFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.eng.err = errors.New("engine down")

	reply, err := f.svc.HandleInbound(context.Background(), channel.Inbound{
		Channel: channel.ChannelWhatsApp, ExternalID: "551177776666", Text: "oi",
	})
	require.NoError(t, err, "engine failure must not fail the request")
	assert.Equal(t, engine.FallbackReply, reply.Text)
	assert.Equal(t, []string{engine.FallbackReply}, f.sender.sent)
}

func TestTierGateInSystemPrompt(t *testing.T) {
	cases := []struct {
		tier      string
		wantLinks bool
	}{
		{"A", true},
		{"B", false},
		{"C", false},
		{"", false},
	}

	for _, tc := range cases {
		f := newFixture(t, contact.Contact{
			ID: "c-" + tc.tier, Channel: "whatsapp", ExternalID: "ext-" + tc.tier, LeadTier: tc.tier,
		})
		_, err := f.svc.HandleInbound(context.Background(), channel.Inbound{
			Channel: channel.ChannelWhatsApp, ExternalID: "ext-" + tc.tier, Text: "quero fechar",
		})
		require.NoError(t, err)

		require.NotEmpty(t, f.eng.systems)
		system := f.eng.systems[0]
		if tc.wantLinks {
			assert.True(t, strings.Contains(system, "https://pay.example.com/x"), "tier %q should see the payment link", tc.tier)
		} else {
			assert.False(t, strings.Contains(system, "https://pay.example.com/x"), "tier %q must not see the payment link", tc.tier)
			assert.True(t, strings.Contains(system, "Não envie links"), "tier %q should get the hold-back directive", tc.tier)
		}
	}
}

func TestSendFollowUpUsesSenderAndPersists(t *testing.T) {
	f := newFixture(t)
	c := contact.Contact{ID: "c-f", Channel: "whatsapp", ExternalID: "55110000"}

	require.NoError(t, f.svc.SendFollowUp(context.Background(), c, 1))
	require.Len(t, f.sender.sent, 1)

	last := f.log.last()
	assert.Equal(t, interaction.RoleAgent, last.Role)
	assert.Equal(t, f.sender.sent[0], last.Content)
}

func TestSendFollowUpNoSenderChannel(t *testing.T) {
	f := newFixture(t)
	c := contact.Contact{ID: "c-g", Channel: "telegram", ExternalID: "x"}

	assert.Error(t, f.svc.SendFollowUp(context.Background(), c, 1))
}
