package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/leadlinehq/leadline/internal/knowledge"
)

// MediaRef points at a binary artifact the engine receives natively rather
// than as prompt text.
type MediaRef struct {
	ArtifactID string
	Filename   string
	MimeType   string
	StorageRef string
}

// Snapshot is one immutable assembled prompt. Requests hold the snapshot
// they started with; a concurrent Refresh never mutates it.
type Snapshot struct {
	System    string
	MediaRefs []MediaRef
	BuiltAt   time.Time
}

type configSource interface {
	Get(ctx context.Context) (CoreConfig, error)
}

type artifactSource interface {
	ListActive(ctx context.Context) ([]knowledge.Artifact, error)
}

// Assembler builds the layered system prompt and serves it lock-free.
type Assembler struct {
	configs   configSource
	artifacts artifactSource
	logger    *slog.Logger
	current   atomic.Pointer[Snapshot]
}

func NewAssembler(logger *slog.Logger, configs configSource, artifacts artifactSource) *Assembler {
	return &Assembler{
		configs:   configs,
		artifacts: artifacts,
		logger:    logger.With(slog.String("service", "prompt_assembler")),
	}
}

// Snapshot returns the current assembled prompt. Before the first Refresh it
// falls back to the compiled-in persona with no artifacts.
func (a *Assembler) Snapshot() *Snapshot {
	if snap := a.current.Load(); snap != nil {
		return snap
	}
	return buildSnapshot(DefaultConfig(), nil)
}

// Refresh rebuilds the snapshot from the stored config and the active
// artifacts and swaps it in atomically. Readers are never blocked.
func (a *Assembler) Refresh(ctx context.Context) error {
	cfg, err := a.configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("refresh prompt: %w", err)
	}
	artifacts, err := a.artifacts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("refresh prompt: %w", err)
	}

	snap := buildSnapshot(cfg, artifacts)
	a.current.Store(snap)
	a.logger.Info("prompt snapshot rebuilt",
		slog.Int("artifacts", len(artifacts)),
		slog.Int("prompt_len", len(snap.System)))
	return nil
}

func buildSnapshot(cfg CoreConfig, artifacts []knowledge.Artifact) *Snapshot {
	var b strings.Builder

	b.WriteString("## Identidade e missão\n")
	b.WriteString(cfg.Identity)
	b.WriteString("\n")
	b.WriteString(cfg.Mission)
	b.WriteString("\n")

	b.WriteString("\n## Personalidade e tom\n")
	b.WriteString(cfg.Tone)
	b.WriteString("\n")

	if len(cfg.AnchorPhrases) > 0 {
		b.WriteString("\n## Frases âncora\n")
		for _, phrase := range cfg.AnchorPhrases {
			b.WriteString("- ")
			b.WriteString(phrase)
			b.WriteString("\n")
		}
	}

	if len(cfg.HardLimits) > 0 {
		b.WriteString("\n## Limites inegociáveis\n")
		for _, limit := range cfg.HardLimits {
			b.WriteString("- ")
			b.WriteString(limit)
			b.WriteString("\n")
		}
	}

	if len(cfg.Situational) > 0 {
		b.WriteString("\n## Comportamentos por situação\n")
		situations := make([]string, 0, len(cfg.Situational))
		for situation := range cfg.Situational {
			situations = append(situations, situation)
		}
		sort.Strings(situations)
		for _, situation := range situations {
			b.WriteString("- Quando o assunto for ")
			b.WriteString(situation)
			b.WriteString(": ")
			b.WriteString(cfg.Situational[situation])
			b.WriteString("\n")
		}
	}

	var mediaRefs []MediaRef
	personaTexts, knowledgeTexts := splitArtifactTexts(artifacts, &mediaRefs)

	if len(personaTexts) > 0 {
		b.WriteString("\n## Referências de persona\n")
		for _, text := range personaTexts {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	if len(knowledgeTexts) > 0 {
		b.WriteString("\n## Base de conhecimento\n")
		for _, text := range knowledgeTexts {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("\n## Diretriz final\n")
	b.WriteString(cfg.FinalDirective)
	b.WriteString("\n")

	return &Snapshot{
		System:    b.String(),
		MediaRefs: mediaRefs,
		BuiltAt:   time.Now().UTC(),
	}
}

func splitArtifactTexts(artifacts []knowledge.Artifact, mediaRefs *[]MediaRef) (persona, know []string) {
	for _, artifact := range artifacts {
		if artifact.Status != knowledge.StatusActive {
			continue
		}
		if artifact.ExtractedText == "" {
			if artifact.StorageRef != "" {
				*mediaRefs = append(*mediaRefs, MediaRef{
					ArtifactID: artifact.ID,
					Filename:   artifact.Filename,
					MimeType:   artifact.MimeType,
					StorageRef: artifact.StorageRef,
				})
			}
			continue
		}
		if artifact.Kind == knowledge.KindPersona {
			persona = append(persona, artifact.ExtractedText)
		} else {
			know = append(know, artifact.ExtractedText)
		}
	}
	return persona, know
}
