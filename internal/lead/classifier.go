package lead

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leadlinehq/leadline/internal/contact"
	"github.com/leadlinehq/leadline/internal/interaction"
)

const classifySystemPrompt = `Você analisa uma conversa de vendas e responde SOMENTE com JSON válido no formato:
{"name": "...", "email": "...", "phone": "...", "pain_point": "...", "maturity": "...", "commitment": "...", "tier": "A"}
Regras:
- "name": o nome da pessoa, se ela o mencionou na conversa.
- "email": o e-mail da pessoa, se ela o informou.
- "phone": o telefone da pessoa, se ela o informou.
- "pain_point": a principal dor ou objetivo da pessoa, em uma frase curta.
- "maturity": o quanto ela entende do assunto (alta, média ou baixa).
- "commitment": o quanto ela sinaliza disposição de agir agora.
- "tier": exatamente "A" (pronta para comprar ou agendar), "B" (aquecendo) ou "C" (descoberta).
Nunca invente dados de contato; copie-os da conversa. Se a conversa não der sinal de algum campo, use "".`

// Profile is what the classifier extracts from one conversation window:
// identity fields the person volunteered plus the qualification signals.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	PainPoint  string `json:"pain_point"`
	Maturity   string `json:"maturity"`
	Commitment string `json:"commitment"`
	Tier       string `json:"tier"`
}

type classifyEngine interface {
	Classify(ctx context.Context, system, transcript string) (string, error)
}

type ledger interface {
	Merge(ctx context.Context, id string, req contact.MergeRequest) (contact.Contact, error)
}

// Classifier runs lead qualification and contact-info extraction off the
// reply path and merges the result into the contact ledger. Failures are
// logged and dropped; stored fields are never blanked or downgraded by a
// failed run.
type Classifier struct {
	engine   classifyEngine
	contacts ledger
	logger   *slog.Logger
}

func NewClassifier(logger *slog.Logger, engine classifyEngine, contacts ledger) *Classifier {
	return &Classifier{
		engine:   engine,
		contacts: contacts,
		logger:   logger.With(slog.String("service", "lead_classifier")),
	}
}

// ClassifyAndMerge analyzes the conversation window and merges any fields
// the model produced. Empty fields are left out of the merge.
func (c *Classifier) ClassifyAndMerge(ctx context.Context, contactID string, turns []interaction.Turn) error {
	transcript := renderTranscript(turns)
	if transcript == "" {
		return nil
	}

	raw, err := c.engine.Classify(ctx, classifySystemPrompt, transcript)
	if err != nil {
		return fmt.Errorf("classify lead: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return fmt.Errorf("parse lead profile: %w", err)
	}

	req := contact.MergeRequest{}
	if v := strings.TrimSpace(profile.Name); v != "" {
		req.Name = &v
	}
	if v := strings.TrimSpace(profile.Email); v != "" && strings.Contains(v, "@") {
		req.Email = &v
	}
	if v := strings.TrimSpace(profile.Phone); v != "" {
		req.Phone = &v
	}
	if v := strings.TrimSpace(profile.PainPoint); v != "" {
		req.PainPoint = &v
	}
	if v := strings.TrimSpace(profile.Maturity); v != "" {
		req.Maturity = &v
	}
	if v := strings.TrimSpace(profile.Commitment); v != "" {
		req.Commitment = &v
	}
	if strings.TrimSpace(profile.Tier) != "" {
		tier := string(ParseTier(profile.Tier))
		req.LeadTier = &tier
	}
	if req == (contact.MergeRequest{}) {
		return nil
	}

	if _, err := c.contacts.Merge(ctx, contactID, req); err != nil {
		return fmt.Errorf("merge lead profile: %w", err)
	}

	c.logger.Debug("lead profile merged", slog.String("contact_id", contactID))
	return nil
}

func renderTranscript(turns []interaction.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		speaker := "Cliente"
		if turn.Role == "model" {
			speaker = "Agente"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
