// Package orchestrator sequences one inbound message through the ledger,
// the prompt snapshot, the engine and the outbound channel. Every dependency
// is injected through the constructor; per-request values travel as
// parameters, never inside the context.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadlinehq/leadline/internal/channel"
	"github.com/leadlinehq/leadline/internal/config"
	"github.com/leadlinehq/leadline/internal/contact"
	"github.com/leadlinehq/leadline/internal/engine"
	"github.com/leadlinehq/leadline/internal/interaction"
	"github.com/leadlinehq/leadline/internal/lead"
	"github.com/leadlinehq/leadline/internal/prompt"
)

type contactLedger interface {
	GetOrCreate(ctx context.Context, chType, externalID string) (contact.Contact, error)
	TouchInbound(ctx context.Context, id string) error
}

type interactionLog interface {
	Append(ctx context.Context, contactID, role, content string, needsHuman bool) (interaction.Interaction, error)
	ListRecent(ctx context.Context, contactID string, limit int) ([]interaction.Interaction, error)
}

type promptSource interface {
	Snapshot() *prompt.Snapshot
}

type generator interface {
	Generate(ctx context.Context, system string, history []engine.Turn, media []engine.Media) (string, error)
}

type classifier interface {
	ClassifyAndMerge(ctx context.Context, contactID string, turns []interaction.Turn) error
}

type rescheduler interface {
	Reschedule(ctx context.Context, contactID string) error
}

// Reply is the orchestrated outcome of one inbound message.
type Reply struct {
	Text       string `json:"response"`
	Tier       string `json:"tier,omitempty"`
	NeedsHuman bool   `json:"needs_human,omitempty"`
}

type Service struct {
	contacts      contactLedger
	interactions  interactionLog
	prompts       promptSource
	engine        generator
	classifier    classifier
	followups     rescheduler
	registry      *channel.Registry
	logger        *slog.Logger
	historyWindow int
	paymentLink   string
	bookingLink   string
}

func NewService(
	logger *slog.Logger,
	contacts contactLedger,
	interactions interactionLog,
	prompts promptSource,
	gen generator,
	cls classifier,
	followups rescheduler,
	registry *channel.Registry,
	agentCfg config.AgentConfig,
) *Service {
	window := agentCfg.HistoryWindow
	if window <= 0 {
		window = 20
	}
	return &Service{
		contacts:      contacts,
		interactions:  interactions,
		prompts:       prompts,
		engine:        gen,
		classifier:    cls,
		followups:     followups,
		registry:      registry,
		logger:        logger.With(slog.String("service", "orchestrator")),
		historyWindow: window,
		paymentLink:   agentCfg.PaymentLink,
		bookingLink:   agentCfg.BookingLink,
	}
}

// HandleInbound runs the full conversation flow for one inbound message and
// returns the reply. For push channels the reply is also dispatched through
// the channel's sender; the web channel reads it from the HTTP response.
func (s *Service) HandleInbound(ctx context.Context, in channel.Inbound) (Reply, error) {
	c, err := s.contacts.GetOrCreate(ctx, in.Channel.String(), in.ExternalID)
	if err != nil {
		return Reply{}, fmt.Errorf("resolve contact: %w", err)
	}
	if err := s.contacts.TouchInbound(ctx, c.ID); err != nil {
		return Reply{}, fmt.Errorf("touch contact: %w", err)
	}

	if c.BotPaused {
		if _, err := s.interactions.Append(ctx, c.ID, interaction.RoleUser, in.Text, true); err != nil {
			return Reply{}, fmt.Errorf("persist paused inbound: %w", err)
		}
		s.logger.Info("bot paused, message parked for a human",
			slog.String("contact_id", c.ID),
			slog.String("channel", in.Channel.String()))
		return Reply{Tier: c.LeadTier, NeedsHuman: true}, nil
	}

	if _, err := s.interactions.Append(ctx, c.ID, interaction.RoleUser, in.Text, false); err != nil {
		return Reply{}, fmt.Errorf("persist inbound: %w", err)
	}

	recent, err := s.interactions.ListRecent(ctx, c.ID, s.historyWindow)
	if err != nil {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}
	turns := interaction.Normalize(recent)

	snap := s.prompts.Snapshot()
	system := s.systemPromptFor(snap, c)

	replyText, err := s.engine.Generate(ctx, system, toEngineTurns(turns), toEngineMedia(snap.MediaRefs))
	if err != nil {
		s.logger.Error("generation failed, using fallback reply",
			slog.String("contact_id", c.ID),
			slog.Any("error", err))
		replyText = engine.FallbackReply
	}

	if _, err := s.interactions.Append(ctx, c.ID, interaction.RoleAgent, replyText, false); err != nil {
		return Reply{}, fmt.Errorf("persist reply: %w", err)
	}

	if sender, ok := s.registry.Sender(in.Channel); ok {
		if err := sender.Send(ctx, in.ExternalID, replyText); err != nil {
			s.logger.Error("outbound send failed",
				slog.String("contact_id", c.ID),
				slog.String("channel", in.Channel.String()),
				slog.Any("error", err))
		}
	}

	if err := s.followups.Reschedule(ctx, c.ID); err != nil {
		s.logger.Error("follow-up reschedule failed",
			slog.String("contact_id", c.ID),
			slog.Any("error", err))
	}

	go s.classifyInBackground(context.WithoutCancel(ctx), c.ID, turns, replyText)

	return Reply{Text: replyText, Tier: c.LeadTier}, nil
}

// SendFollowUp composes and delivers one inactivity nudge. Used by the
// follow-up scheduler.
func (s *Service) SendFollowUp(ctx context.Context, c contact.Contact, attempt int) error {
	recent, err := s.interactions.ListRecent(ctx, c.ID, s.historyWindow)
	if err != nil {
		return fmt.Errorf("load history for follow-up: %w", err)
	}
	turns := interaction.Normalize(recent)

	snap := s.prompts.Snapshot()
	system := s.systemPromptFor(snap, c) + fmt.Sprintf(
		"\n## Retomada\nA pessoa parou de responder. Esta é a retomada número %d. Escreva uma mensagem curta e genuína puxando a conversa de onde parou, sem soar cobrança.\n", attempt)

	text, err := s.engine.Generate(ctx, system, toEngineTurns(turns), nil)
	if err != nil {
		s.logger.Warn("follow-up generation failed, using canned nudge",
			slog.String("contact_id", c.ID),
			slog.Any("error", err))
		text = "Oi! Fiquei pensando na nossa conversa. Ainda faz sentido pra você continuar de onde paramos?"
	}

	sender, ok := s.registry.Sender(channel.ChannelType(c.Channel))
	if !ok {
		return fmt.Errorf("no sender for channel %q", c.Channel)
	}
	if err := sender.Send(ctx, c.ExternalID, text); err != nil {
		return fmt.Errorf("send follow-up: %w", err)
	}

	if _, err := s.interactions.Append(ctx, c.ID, interaction.RoleAgent, text, false); err != nil {
		s.logger.Error("persist follow-up failed", slog.String("contact_id", c.ID), slog.Any("error", err))
	}
	return nil
}

// systemPromptFor layers the tier gate on top of the assembled snapshot.
// Payment and booking links are offered to tier A only.
func (s *Service) systemPromptFor(snap *prompt.Snapshot, c contact.Contact) string {
	var b strings.Builder
	b.WriteString(snap.System)

	tier := lead.ParseTier(c.LeadTier)
	if c.LeadTier != "" && lead.AllowHighCommitment(tier) {
		b.WriteString("\n## Próximo passo\nEsta pessoa está pronta para avançar. Quando fizer sentido na conversa, ofereça diretamente:\n")
		if s.paymentLink != "" {
			b.WriteString("- Link de pagamento: " + s.paymentLink + "\n")
		}
		if s.bookingLink != "" {
			b.WriteString("- Link de agendamento: " + s.bookingLink + "\n")
		}
	} else {
		b.WriteString("\n## Próximo passo\nEsta pessoa ainda não está pronta para proposta. Não envie links de pagamento nem de agendamento; aprofunde a conversa.\n")
	}

	if c.Name != "" {
		b.WriteString("\nNome da pessoa: " + c.Name + "\n")
	}
	return b.String()
}

func (s *Service) classifyInBackground(ctx context.Context, contactID string, turns []interaction.Turn, replyText string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("classification panicked",
				slog.String("contact_id", contactID),
				slog.Any("panic", r))
		}
	}()

	window := append(append([]interaction.Turn(nil), turns...), interaction.Turn{Role: "model", Content: replyText})
	if err := s.classifier.ClassifyAndMerge(ctx, contactID, window); err != nil {
		s.logger.Warn("classification failed",
			slog.String("contact_id", contactID),
			slog.Any("error", err))
	}
}

func toEngineTurns(turns []interaction.Turn) []engine.Turn {
	out := make([]engine.Turn, len(turns))
	for i, t := range turns {
		out[i] = engine.Turn{Role: t.Role, Content: t.Content}
	}
	return out
}

func toEngineMedia(refs []prompt.MediaRef) []engine.Media {
	if len(refs) == 0 {
		return nil
	}
	out := make([]engine.Media, len(refs))
	for i, ref := range refs {
		out[i] = engine.Media{MimeType: ref.MimeType, StorageRef: ref.StorageRef}
	}
	return out
}
